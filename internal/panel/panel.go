// Package panel enforces that at most one output panel is visible.
package panel

import "github.com/pavelanni/studydesk/internal/model"

// Panel is a render target that can be shown or hidden.
type Panel interface {
	SetVisible(visible bool)
}

// Flag is an in-memory Panel.
type Flag struct {
	Visible bool
}

// SetVisible records the visibility.
func (f *Flag) SetVisible(visible bool) { f.Visible = visible }

// Controller owns the active view. It is not safe for concurrent use; the
// orchestrator serializes access.
type Controller struct {
	active    model.ActiveView
	container Panel
	panels    map[model.ActiveView]Panel
}

// NewController creates a controller over the shared output container and
// one panel per view. Views without a panel are tracked but not rendered.
func NewController(container Panel, panels map[model.ActiveView]Panel) *Controller {
	if container == nil {
		container = &Flag{}
	}
	c := &Controller{container: container, panels: make(map[model.ActiveView]Panel)}
	for _, v := range model.Views {
		p := panels[v]
		if p == nil {
			p = &Flag{}
		}
		c.panels[v] = p
	}
	return c
}

// Show hides every panel other than view, shows view and reveals the
// output container. Calling it with the active view only re-asserts
// visibility.
func (c *Controller) Show(view model.ActiveView) {
	for _, v := range model.Views {
		c.panels[v].SetVisible(v == view)
	}
	c.active = view
	c.container.SetVisible(true)
}

// Active returns the current view.
func (c *Controller) Active() model.ActiveView {
	return c.active
}

// Visible returns the views currently shown; never more than one.
func (c *Controller) Visible() []model.ActiveView {
	if c.active == model.ViewNone {
		return nil
	}
	return []model.ActiveView{c.active}
}

// ContainerVisible reports whether Show has revealed the output container.
func (c *Controller) ContainerVisible() bool {
	if f, ok := c.container.(*Flag); ok {
		return f.Visible
	}
	return c.active != model.ViewNone
}
