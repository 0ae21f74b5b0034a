package handdrawn

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/vizlab/pkg/render/styles"
)

func TestWobbledCircle(t *testing.T) {
	path := wobbledCircle(50, 50, 20, 42, "node-a")

	if !strings.HasPrefix(path, "M") {
		t.Errorf("wobbledCircle() should start with M, got: %s", path)
	}
	if !strings.HasSuffix(path, "Z") {
		t.Errorf("wobbledCircle() should end with Z, got: %s", path)
	}
	if strings.Count(path, "Q") != circleSegs {
		t.Errorf("wobbledCircle() should have %d Q segments, got: %s", circleSegs, path)
	}

	if path != wobbledCircle(50, 50, 20, 42, "node-a") {
		t.Error("wobbledCircle() should be deterministic")
	}
	if path == wobbledCircle(50, 50, 20, 42, "node-b") {
		t.Error("wobbledCircle() should differ per ID")
	}
	if path == wobbledCircle(50, 50, 20, 7, "node-a") {
		t.Error("wobbledCircle() should differ per seed")
	}
}

func TestWobbledCircle_ZeroRadius(t *testing.T) {
	if got := wobbledCircle(3, 4, 0, 1, "x"); got != "M3.00,4.00Z" {
		t.Errorf("zero radius = %q", got)
	}
}

func TestCurvedLink(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 float64
		want           string
	}{
		{"short link is straight", 0, 0, 10, 10, "L"},
		{"long link is curved", 0, 0, 200, 80, "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := curvedLink(tt.x1, tt.y1, tt.x2, tt.y2, newRNG(1, "l"))
			if !strings.HasPrefix(path, "M") || !strings.Contains(path, tt.want) {
				t.Errorf("curvedLink() = %s, want %s segment", path, tt.want)
			}
		})
	}
}

func TestStyle_Render(t *testing.T) {
	s := New(42)
	var buf bytes.Buffer
	s.RenderDefs(&buf)
	s.RenderCircle(&buf, styles.Circle{ID: "c1", CX: 10, CY: 10, R: 5, Fill: "none", Stroke: "#555", StrokeWidth: 1})
	s.RenderLink(&buf, styles.Link{ID: "l1", X1: 0, Y1: 0, X2: 100, Y2: 40, Stroke: "#555", StrokeWidth: 1})
	s.RenderText(&buf, styles.Text{Label: "Pop & Rock", X: 1, Y: 2})

	out := buf.String()
	for _, want := range []string{`<filter id="hd-rough">`, `id="c1"`, `filter="url(#hd-rough)"`, `id="l1"`, `Pop &amp; Rock`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if s.Name() != "handdrawn" {
		t.Errorf("Name() = %q", s.Name())
	}
}
