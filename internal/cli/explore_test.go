package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/pipeline"
)

func newTestExplore(t *testing.T) exploreModel {
	t.Helper()
	ctx := context.Background()
	opts := fixtureOptions(t)
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
	t.Cleanup(func() { runner.Close() })

	fc, _, err := runner.LoadFeatures(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	pts, err := runner.LoadPoints(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	m, err := runner.BuildMap(ctx, opts, fc, pts)
	if err != nil {
		t.Fatal(err)
	}
	return newExploreModel(m)
}

func press(e exploreModel, keys ...tea.KeyMsg) (exploreModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = e.Update(k)
		e = next.(exploreModel)
	}
	return e, cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestExploreZoomAndReset(t *testing.T) {
	e := newTestExplore(t)

	e, _ = press(e, runeKey('+'))
	if k := e.m.Zoom().K; k != 2 {
		t.Fatalf("zoom after + = %v, want 2", k)
	}
	before := e.m.Zoom()
	e, _ = press(e, tea.KeyMsg{Type: tea.KeyLeft})
	if e.m.Zoom() == before {
		t.Error("pan did not move the zoomed map")
	}

	e, _ = press(e, runeKey('r'))
	if e.m.Zoom() != geo.Identity {
		t.Errorf("reset zoom = %+v", e.m.Zoom())
	}

	e, _ = press(e, runeKey('-'), runeKey('-'))
	if k := e.m.Zoom().K; k != geo.MinZoom {
		t.Errorf("zoom out below the minimum: %v", k)
	}
}

func TestExploreSelect(t *testing.T) {
	e := newTestExplore(t)
	n := len(e.m.Markers())
	if n != 2 {
		t.Fatalf("markers = %d, want 2", n)
	}

	tab := tea.KeyMsg{Type: tea.KeyTab}
	e, _ = press(e, tab)
	if e.selected != 0 {
		t.Errorf("selected = %d", e.selected)
	}
	e, _ = press(e, tab, tab)
	if e.selected != 0 {
		t.Errorf("selection should wrap, got %d", e.selected)
	}
	if !strings.Contains(e.View(), "◉") {
		t.Error("selected marker not drawn")
	}
}

func TestExploreView(t *testing.T) {
	e := newTestExplore(t)
	next, _ := e.Update(tea.WindowSizeMsg{Width: 60, Height: 40})
	e = next.(exploreModel)
	if e.cols != 60 {
		t.Errorf("cols = %d", e.cols)
	}

	view := e.View()
	for _, want := range []string{"vizlab explore", "zoom 1x", "Location", "●"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestExploreQuit(t *testing.T) {
	e := newTestExplore(t)
	for _, k := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := press(e, k)
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not quit", k)
		}
	}
}

func TestGridLineClips(t *testing.T) {
	g := newGrid(4, 2)
	g.line(-3, 0, 6, 0, '·')
	g.mark(9, 9, '●')
	if got := g.String(); strings.Count(got, "·") != 4 || strings.Contains(got, "●") {
		t.Errorf("grid = %q", got)
	}
}
