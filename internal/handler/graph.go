package handler

import (
	"sync"

	"github.com/pavelanni/studydesk/internal/handler/views"
	"github.com/pavelanni/studydesk/internal/model"
)

// Download metadata for an exported concept map.
const (
	ConceptMapFilename    = "concept_map.dot"
	ConceptMapContentType = "text/vnd.graphviz; charset=utf-8"
)

// GraphSink is the server side of the browser graph engine. It keeps the
// last rendered map so it can be exported as a Graphviz document; layout
// itself happens in the page.
type GraphSink struct {
	mu     sync.Mutex
	nodes  []model.Node
	edges  []model.Edge
	fitted bool
}

// Render replaces the graph.
func (g *GraphSink) Render(nodes []model.Node, edges []model.Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes, g.edges, g.fitted = nodes, edges, false
}

// FitToContent asks the page to zoom the diagram to its bounds.
func (g *GraphSink) FitToContent() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fitted = true
}

// Fitted reports whether the current graph should be fitted on load.
func (g *GraphSink) Fitted() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fitted
}

// ExportImage renders the graph as DOT.
func (g *GraphSink) ExportImage() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return views.ConceptMapDOT(g.nodes, g.edges), nil
}
