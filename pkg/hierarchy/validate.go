package hierarchy

import (
	"math"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// sumTolerance absorbs rounding from summing in a different order than Sum.
const sumTolerance = 1e-9

// Validate checks the structural invariants of a built hierarchy: every
// node's Value equals its own datum plus the sum of its children, children
// are in non-increasing Value order, depths follow the parent chain, and no
// value is negative or non-finite.
func (n *Node) Validate() error {
	if n == nil {
		return errors.New(errors.ErrCodeEmptyHierarchy, "nil hierarchy")
	}
	var err error
	n.EachBefore(func(m *Node) {
		if err != nil {
			return
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) || m.Value < 0 {
			err = errors.New(errors.ErrCodeInvalidInput, "%s: invalid value %v", m.Path("/"), m.Value)
			return
		}
		if m != n && m.Depth != m.Parent.Depth+1 {
			err = errors.New(errors.ErrCodeInternal, "%s: depth %d under parent depth %d", m.Path("/"), m.Depth, m.Parent.Depth)
			return
		}
		sum := m.Data.Value
		for i, c := range m.Children {
			if c.Parent != m {
				err = errors.New(errors.ErrCodeInternal, "%s: broken parent link", c.Path("/"))
				return
			}
			if i > 0 && c.Value > m.Children[i-1].Value {
				err = errors.New(errors.ErrCodeInternal, "%s: children not sorted by descending value", m.Path("/"))
				return
			}
			sum += c.Value
		}
		if math.Abs(sum-m.Value) > sumTolerance*math.Max(1, math.Abs(sum)) {
			err = errors.New(errors.ErrCodeInternal, "%s: value %v != children sum %v", m.Path("/"), m.Value, sum)
		}
	})
	return err
}
