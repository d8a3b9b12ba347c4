package views

import (
	"bytes"
	"strconv"

	"github.com/pavelanni/studydesk/internal/model"
)

// ConceptMapDOT renders a concept map as a Graphviz digraph. Nodes keep
// their server keys as ids; the text becomes the label.
func ConceptMapDOT(nodes []model.Node, edges []model.Edge) []byte {
	var b bytes.Buffer
	b.WriteString("digraph concept_map {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")
	for _, n := range nodes {
		b.WriteString("  " + strconv.Quote(n.Key) + " [label=" + strconv.Quote(labelOr(n.Text, n.Key)) + "];\n")
	}
	for _, e := range edges {
		b.WriteString("  " + strconv.Quote(e.From) + " -> " + strconv.Quote(e.To))
		if e.Label != "" {
			b.WriteString(" [label=" + strconv.Quote(e.Label) + "]")
		}
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.Bytes()
}
