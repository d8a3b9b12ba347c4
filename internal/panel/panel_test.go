package panel

import (
	"testing"

	"github.com/pavelanni/studydesk/internal/model"
)

func newFlags() (*Flag, map[model.ActiveView]*Flag, *Controller) {
	container := &Flag{}
	flags := map[model.ActiveView]*Flag{}
	panels := map[model.ActiveView]Panel{}
	for _, v := range model.Views {
		f := &Flag{}
		flags[v] = f
		panels[v] = f
	}
	return container, flags, NewController(container, panels)
}

func visibleCount(flags map[model.ActiveView]*Flag) int {
	n := 0
	for _, f := range flags {
		if f.Visible {
			n++
		}
	}
	return n
}

func TestShowExclusive(t *testing.T) {
	container, flags, c := newFlags()

	c.Show(model.ViewQuiz)
	c.Show(model.ViewConceptMap)

	if !flags[model.ViewConceptMap].Visible {
		t.Error("concept map panel should be visible")
	}
	if flags[model.ViewQuiz].Visible {
		t.Error("quiz panel should be hidden")
	}
	if n := visibleCount(flags); n != 1 {
		t.Errorf("%d panels visible, want 1", n)
	}
	if !container.Visible {
		t.Error("container should be visible")
	}
	if c.Active() != model.ViewConceptMap {
		t.Errorf("Active = %q", c.Active())
	}
}

func TestShowIdempotent(t *testing.T) {
	container, flags, c := newFlags()
	c.Show(model.ViewPlan)
	container.Visible = false
	c.Show(model.ViewPlan)
	if !container.Visible || !flags[model.ViewPlan].Visible || visibleCount(flags) != 1 {
		t.Error("repeated Show should keep the panel and container visible")
	}
}

func TestShowNone(t *testing.T) {
	container, flags, c := newFlags()
	c.Show(model.ViewSummary)
	c.Show(model.ViewNone)
	if n := visibleCount(flags); n != 0 {
		t.Errorf("%d panels visible after Show(None), want 0", n)
	}
	if !container.Visible {
		t.Error("Show(None) still reveals the container")
	}
	if len(c.Visible()) != 0 {
		t.Errorf("Visible = %v, want empty", c.Visible())
	}
}

func TestNilPanels(t *testing.T) {
	c := NewController(nil, nil)
	if c.ContainerVisible() {
		t.Error("container should start hidden")
	}
	c.Show(model.ViewQuiz)
	if got := c.Visible(); len(got) != 1 || got[0] != model.ViewQuiz {
		t.Errorf("Visible = %v", got)
	}
	if !c.ContainerVisible() {
		t.Error("container should be visible after Show")
	}
}
