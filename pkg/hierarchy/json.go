package hierarchy

import (
	"encoding/json"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// View is the serialized form of a node. It drops the parent pointer and
// carries layout fields only when set.
type View struct {
	Name     string  `json:"name" yaml:"name"`
	Value    float64 `json:"value" yaml:"value"`
	Own      float64 `json:"own,omitempty" yaml:"own,omitempty"`
	Depth    int     `json:"depth" yaml:"depth"`
	Height   int     `json:"height" yaml:"height"`
	X        float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y        float64 `json:"y,omitempty" yaml:"y,omitempty"`
	R        float64 `json:"r,omitempty" yaml:"r,omitempty"`
	Children []*View `json:"children,omitempty" yaml:"children,omitempty"`
}

// View returns the serializable form of the subtree rooted at n.
func (n *Node) View() *View {
	v := &View{
		Name:   n.Data.Name,
		Value:  n.Value,
		Depth:  n.Depth,
		Height: n.Height,
		X:      n.X,
		Y:      n.Y,
		R:      n.R,
	}
	if !n.IsLeaf() {
		v.Own = n.Data.Value
	}
	for _, c := range n.Children {
		v.Children = append(v.Children, c.View())
	}
	return v
}

// fromView rebuilds a node tree, restoring parent pointers.
func fromView(v *View, parent *Node) *Node {
	n := &Node{
		Data:   Datum{Name: v.Name, Value: v.Own},
		Value:  v.Value,
		Depth:  v.Depth,
		Height: v.Height,
		Parent: parent,
		X:      v.X,
		Y:      v.Y,
		R:      v.R,
	}
	if len(v.Children) == 0 {
		n.Data.Value = v.Value
	}
	for _, c := range v.Children {
		n.Children = append(n.Children, fromView(c, n))
	}
	return n
}

// MarshalJSON encodes the subtree rooted at n.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.View())
}

// UnmarshalJSON decodes a subtree written by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode hierarchy")
	}
	*n = *fromView(&v, nil)
	for _, c := range n.Children {
		c.Parent = n
	}
	return nil
}
