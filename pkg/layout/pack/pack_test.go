package pack

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
)

const eps = 1e-3

func build(t *testing.T, m hierarchy.Map) *hierarchy.Node {
	t.Helper()
	root, err := hierarchy.Build("root", m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return root
}

func randomTree(r *rand.Rand, depth int) hierarchy.Tree {
	if depth == 0 || r.Intn(3) == 0 {
		return hierarchy.Leaf(1 + r.Float64()*500)
	}
	m := hierarchy.Map{}
	for i := range r.Intn(6) + 1 {
		m[fmt.Sprintf("n%d", i)] = randomTree(r, depth-1)
	}
	return m
}

func TestEnclose(t *testing.T) {
	got := Enclose([]Circle{{0, 0, 1}, {4, 0, 1}})
	if math.Abs(got.X-2) > 1e-9 || math.Abs(got.Y) > 1e-9 || math.Abs(got.R-3) > 1e-9 {
		t.Errorf("Enclose = %+v, want {2 0 3}", got)
	}

	if got := Enclose(nil); got != (Circle{}) {
		t.Errorf("Enclose(nil) = %+v", got)
	}

	r := rand.New(rand.NewSource(3))
	for i := range 100 {
		cs := make([]Circle, r.Intn(20)+1)
		for j := range cs {
			cs[j] = Circle{X: r.Float64()*100 - 50, Y: r.Float64()*100 - 50, R: r.Float64() * 10}
		}
		e := Enclose(cs)
		for _, c := range cs {
			if math.Hypot(c.X-e.X, c.Y-e.Y)+c.R > e.R+1e-6 {
				t.Fatalf("case %d: %+v not enclosed by %+v", i, c, e)
			}
		}
	}
}

func TestPackSiblings(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := range 100 {
		cs := make([]*Circle, r.Intn(30)+1)
		for j := range cs {
			cs[j] = &Circle{R: 1 + r.Float64()*20}
		}
		enc := PackSiblings(cs)
		for a := range cs {
			if math.Hypot(cs[a].X, cs[a].Y)+cs[a].R > enc+1e-6 {
				t.Fatalf("case %d: circle %d outside enclosing radius %v", i, a, enc)
			}
			for b := a + 1; b < len(cs); b++ {
				d := math.Hypot(cs[a].X-cs[b].X, cs[a].Y-cs[b].Y)
				if d < cs[a].R+cs[b].R-1e-6 {
					t.Fatalf("case %d: circles %d and %d overlap", i, a, b)
				}
			}
		}
	}
}

func TestLayout_Root(t *testing.T) {
	root := build(t, hierarchy.Map{"a": hierarchy.Leaf(4), "b": hierarchy.Leaf(1)})
	if err := Layout(root, 600, 400, DefaultPadding); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if math.Abs(root.X-300) > eps || math.Abs(root.Y-200) > eps || math.Abs(root.R-200) > eps {
		t.Errorf("root = (%v, %v, r=%v), want (300, 200, r=200)", root.X, root.Y, root.R)
	}
}

func TestLayout_SingleLeaf(t *testing.T) {
	root := build(t, hierarchy.Map{})
	root.Data.Value, root.Value = 9, 9
	if err := Layout(root, 100, 100, 0); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if math.Abs(root.R-50) > eps || root.X != 50 || root.Y != 50 {
		t.Errorf("root = %+v", root)
	}
}

func TestLayout_ZeroValues(t *testing.T) {
	root := build(t, hierarchy.Map{"a": hierarchy.Leaf(0), "b": hierarchy.Map{"c": hierarchy.Leaf(0)}})
	if err := Layout(root, 200, 100, 0); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, n := range root.Descendants() {
		if n.X != 100 || n.Y != 50 || n.R != 0 {
			t.Errorf("%s = (%v, %v, r=%v), want collapsed at center", n.Data.Name, n.X, n.Y, n.R)
		}
	}

	// With padding the parents still get a radius, and nothing is NaN.
	cp := root.Copy()
	if err := Layout(cp, 200, 100, DefaultPadding); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, n := range cp.Descendants() {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsNaN(n.R) {
			t.Errorf("%s has NaN geometry", n.Data.Name)
		}
	}
}

func TestLayout_Errors(t *testing.T) {
	root := build(t, hierarchy.Map{"a": hierarchy.Leaf(1)})
	tests := []struct {
		name    string
		root    *hierarchy.Node
		w, h, p float64
		code    errors.Code
	}{
		{"nil root", nil, 100, 100, 5, errors.ErrCodeEmptyHierarchy},
		{"zero width", root, 0, 100, 5, errors.ErrCodeInvalidCanvas},
		{"negative padding", root, 100, 100, -1, errors.ErrCodeInvalidCanvas},
		{"nan padding", root, 100, 100, math.NaN(), errors.ErrCodeInvalidCanvas},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Layout(tt.root, tt.w, tt.h, tt.p); !errors.Is(err, tt.code) {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLayout_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	const size, pad = 740.0, float64(DefaultPadding)

	for i := range 100 {
		root := build(t, hierarchy.Map{"g": randomTree(r, 3), "h": randomTree(r, 2), "k": hierarchy.Leaf(30)})
		if err := Layout(root, size, size, pad); err != nil {
			t.Fatalf("case %d: %v", i, err)
		}

		for _, n := range root.Descendants() {
			if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsNaN(n.R) {
				t.Fatalf("case %d: %s has NaN geometry", i, n.Path("/"))
			}
			for j, c := range n.Children {
				gap := n.R - (math.Hypot(c.X-n.X, c.Y-n.Y) + c.R)
				if gap < pad*0.5-eps {
					t.Fatalf("case %d: %s not inside %s with padding (gap %v)", i, c.Path("/"), n.Path("/"), gap)
				}
				for _, s := range n.Children[j+1:] {
					d := math.Hypot(c.X-s.X, c.Y-s.Y) - c.R - s.R
					if d < -eps {
						t.Fatalf("case %d: siblings %s and %s overlap by %v", i, c.Path("/"), s.Path("/"), -d)
					}
				}
			}
		}

		leaves := root.Leaves()
		for _, a := range leaves {
			for _, b := range leaves {
				if a.Value < b.Value && a.R >= b.R {
					t.Fatalf("case %d: radius not increasing with value (%v→%v, %v→%v)", i, a.Value, a.R, b.Value, b.R)
				}
			}
		}
	}
}
