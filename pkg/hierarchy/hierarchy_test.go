package hierarchy

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/matzehuels/vizlab/pkg/aggregate"
	"github.com/matzehuels/vizlab/pkg/errors"
)

func sample() Map {
	return Map{
		"Pop":  Map{"Dance": Leaf(150), "Synth": Leaf(20)},
		"Rock": Map{"Indie": Leaf(50), "Punk": Leaf(50), "Metal": Leaf(5)},
		"Jazz": Map{"Bebop": Leaf(70)},
	}
}

func TestBuild(t *testing.T) {
	root, err := Build("root", sample())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root.Value != 345 {
		t.Errorf("root value = %v, want 345", root.Value)
	}
	if root.Height != 2 || root.Depth != 0 {
		t.Errorf("root height/depth = %d/%d, want 2/0", root.Height, root.Depth)
	}

	var order []string
	for _, c := range root.Children {
		order = append(order, c.Data.Name)
	}
	if fmt.Sprint(order) != "[Pop Rock Jazz]" {
		t.Errorf("child order = %v, want [Pop Rock Jazz]", order)
	}

	rock := root.Children[1]
	if rock.Children[0].Data.Name != "Indie" || rock.Children[1].Data.Name != "Punk" {
		t.Errorf("ties should keep sorted key order, got %s, %s",
			rock.Children[0].Data.Name, rock.Children[1].Data.Name)
	}
	if err := root.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBuild_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
		code errors.Code
	}{
		{"nil", nil, errors.ErrCodeEmptyHierarchy},
		{"nan", Map{"a": Leaf(math.NaN())}, errors.ErrCodeInvalidInput},
		{"inf", Map{"a": Map{"b": Leaf(math.Inf(1))}}, errors.ErrCodeInvalidInput},
		{"negative", Map{"a": Leaf(-1)}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("root", tt.tree)
			if !errors.Is(err, tt.code) {
				t.Errorf("Build() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestBuild_TooDeep(t *testing.T) {
	var tree Tree = Leaf(1)
	for range MaxDepth + 1 {
		tree = Map{"x": tree}
	}
	if _, err := Build("root", tree); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for deep tree, got %v", err)
	}
}

func TestFromNested_Empty(t *testing.T) {
	root, err := FromNested("root", aggregate.Nested{})
	if err != nil {
		t.Fatalf("FromNested: %v", err)
	}
	if !IsEmpty(root) || root.Value != 0 {
		t.Errorf("expected empty root, got %+v", root)
	}
	if !IsEmpty(nil) {
		t.Error("nil root should be empty")
	}
}

func randomNested(r *rand.Rand) aggregate.Nested {
	n := aggregate.Nested{}
	for g := range r.Intn(6) + 1 {
		subs := map[string]float64{}
		for s := range r.Intn(5) + 1 {
			subs[fmt.Sprintf("s%d", s)] = float64(r.Intn(4)) * r.Float64() * 1000
		}
		n[fmt.Sprintf("g%d", g)] = subs
	}
	return n
}

func TestProperties_SumAndOrder(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := range 200 {
		root, err := FromNested("root", randomNested(r))
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if err := root.Validate(); err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
	}
}

func TestCopy_Independent(t *testing.T) {
	root, _ := Build("root", sample())
	cp := root.Copy()

	for _, n := range cp.Descendants() {
		n.X, n.Y, n.R = 1, 2, 3
		n.Value = -1
	}
	cp.Children[0].Children = nil

	for _, n := range root.Descendants() {
		if n.X != 0 || n.Y != 0 || n.R != 0 {
			t.Fatalf("original %s mutated through copy", n.Data.Name)
		}
	}
	if err := root.Validate(); err != nil {
		t.Errorf("original invalid after mutating copy: %v", err)
	}
	for _, n := range cp.Descendants()[1:] {
		if n.Parent == nil {
			t.Fatalf("%s lost its parent", n.Data.Name)
		}
		for _, a := range n.Ancestors() {
			if a == root {
				t.Fatalf("copy of %s points into the original", n.Data.Name)
			}
		}
	}
}

func TestTraversal(t *testing.T) {
	root, _ := Build("root", sample())

	desc := root.Descendants()
	if len(desc) != 10 {
		t.Fatalf("Descendants = %d, want 10", len(desc))
	}
	for i := 1; i < len(desc); i++ {
		if desc[i].Depth < desc[i-1].Depth {
			t.Fatal("Descendants is not breadth-first")
		}
	}
	if got := len(root.Leaves()); got != 6 {
		t.Errorf("Leaves = %d, want 6", got)
	}
	if got := len(root.Links()); got != 9 {
		t.Errorf("Links = %d, want 9", got)
	}
	leaf := root.Children[0].Children[0]
	if got := leaf.Path("/"); got != "root/Pop/Dance" {
		t.Errorf("Path = %q", got)
	}
	if got := leaf.Key(); got != "0-0-0" {
		t.Errorf("Key = %q", got)
	}

	var post []string
	root.Children[2].EachAfter(func(n *Node) { post = append(post, n.Data.Name) })
	if fmt.Sprint(post) != "[Bebop Jazz]" {
		t.Errorf("EachAfter = %v", post)
	}
}

func TestValidate_Detects(t *testing.T) {
	root, _ := Build("root", sample())
	root.Children[0].Value = 1
	if err := root.Validate(); err == nil {
		t.Error("expected error for inconsistent value")
	}

	root, _ = Build("root", sample())
	root.Children[0], root.Children[2] = root.Children[2], root.Children[0]
	if err := root.Validate(); err == nil {
		t.Error("expected error for unsorted children")
	}
}

func TestJSON(t *testing.T) {
	root, _ := Build("root", sample())
	root.Children[0].X = 12.5

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Value != root.Value || back.Children[0].X != 12.5 {
		t.Errorf("decoded root = %+v", back)
	}
	if back.Children[0].Parent != &back {
		t.Error("parent pointer not restored on root children")
	}
	if err := back.Validate(); err != nil {
		t.Errorf("decoded hierarchy invalid: %v", err)
	}
}

func TestKeyUniqueForLookalikeNames(t *testing.T) {
	root, err := Build("root", Map{
		"Hip Hop": Map{"Trap": Leaf(10)},
		"Hip_Hop": Map{"Trap": Leaf(20)},
		"a/b":     Map{"c": Leaf(1)},
		"a":       Map{"b/c": Leaf(1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]string{}
	for _, n := range root.Descendants() {
		k := n.Key()
		if prev, dup := seen[k]; dup {
			t.Errorf("%s and %s share key %q", prev, n.Path("/"), k)
		}
		seen[k] = n.Path("/")
	}
	if len(seen) != 9 {
		t.Errorf("keys = %d, want 9", len(seen))
	}
	if root.Key() != "0" {
		t.Errorf("root key = %q", root.Key())
	}
}
