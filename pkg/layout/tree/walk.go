package tree

import "github.com/matzehuels/vizlab/pkg/hierarchy"

// wnode carries the per-node working state of the tidy-tree walks.
//
//	z: preliminary x      m: modifier
//	c: change             s: shift
//	a: ancestor pointer   A: default ancestor of the children
//	t: thread             i: index among siblings
type wnode struct {
	n        *hierarchy.Node
	parent   *wnode
	children []*wnode
	A, a, t  *wnode
	z, m     float64
	c, s     float64
	i        int
}

// wrap mirrors the hierarchy under a virtual parent so the root has a
// sibling list like every other node.
func wrap(root *hierarchy.Node) *wnode {
	t := newWNode(root, 0)
	stack := []*wnode{t}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(v.n.Children) == 0 {
			continue
		}
		v.children = make([]*wnode, len(v.n.Children))
		for i, c := range v.n.Children {
			w := newWNode(c, i)
			w.parent = v
			v.children[i] = w
			stack = append(stack, w)
		}
	}
	t.parent = &wnode{children: []*wnode{t}}
	t.parent.a = t.parent
	return t
}

func newWNode(n *hierarchy.Node, i int) *wnode {
	w := &wnode{n: n, i: i}
	w.a = w
	return w
}

func (v *wnode) eachAfter(fn func(*wnode)) {
	for _, c := range v.children {
		c.eachAfter(fn)
	}
	fn(v)
}

func (v *wnode) eachBefore(fn func(*wnode)) {
	fn(v)
	for _, c := range v.children {
		c.eachBefore(fn)
	}
}

func nextLeft(v *wnode) *wnode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.t
}

func nextRight(v *wnode) *wnode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.t
}

func moveSubtree(wm, wp *wnode, shift float64) {
	change := shift / float64(wp.i-wm.i)
	wp.c -= change
	wp.s += shift
	wm.c += change
	wp.z += shift
	wp.m += shift
}

func executeShifts(v *wnode) {
	var shift, change float64
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.z += shift
		w.m += shift
		change += w.c
		shift += w.s + change
	}
}

func nextAncestor(vim, v, ancestor *wnode) *wnode {
	if vim.a.parent == v.parent {
		return vim.a
	}
	return ancestor
}

// firstWalk computes preliminary x coordinates bottom-up.
func firstWalk(v *wnode, sep Separation) {
	siblings := v.parent.children
	var w *wnode
	if v.i > 0 {
		w = siblings[v.i-1]
	}

	if len(v.children) > 0 {
		executeShifts(v)
		mid := (v.children[0].z + v.children[len(v.children)-1].z) / 2
		if w != nil {
			v.z = w.z + sep(v.n, w.n)
			v.m = v.z - mid
		} else {
			v.z = mid
		}
	} else if w != nil {
		v.z = w.z + sep(v.n, w.n)
	}

	anc := v.parent.A
	if anc == nil {
		anc = siblings[0]
	}
	v.parent.A = apportion(v, w, anc, sep)
}

// secondWalk resolves final x coordinates top-down.
func secondWalk(v *wnode) {
	v.n.X = v.z + v.parent.m
	v.m += v.parent.m
}

// apportion pushes v's subtree right until its left contour clears the
// right contour of the subtrees to its left, spreading the shift across the
// intermediate siblings.
func apportion(v, w, ancestor *wnode, sep Separation) *wnode {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := w
	vom := vip.parent.children[0]
	sip, sop := vip.m, vop.m
	sim, som := vim.m, vom.m

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.a = v
		shift := vim.z + sim - vip.z - sip + sep(vim.n, vip.n)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.m
		sip += vip.m
		som += vom.m
		sop += vop.m
	}

	if vim != nil && nextRight(vop) == nil {
		vop.t = vim
		vop.m += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.t = vip
		vom.m += sip - som
		ancestor = v
	}
	return ancestor
}
