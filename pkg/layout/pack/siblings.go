package pack

import "math"

// chain is a node of the circular front-chain.
type chain struct {
	c          *Circle
	next, prev *chain
}

// PackSiblings positions circles (using only their radii) so that none
// overlap, packed tightly around the origin with the enclosing circle
// centered there. It returns the radius of that enclosing circle.
func PackSiblings(cs []*Circle) float64 {
	return packSiblingsRandom(cs, newLCG())
}

func packSiblingsRandom(cs []*Circle, rnd *lcg) float64 {
	n := len(cs)
	if n == 0 {
		return 0
	}

	a := cs[0]
	a.X, a.Y = 0, 0
	if n == 1 {
		return a.R
	}

	b := cs[1]
	a.X = -b.R
	b.X, b.Y = a.R, 0
	if n == 2 {
		return a.R + b.R
	}

	place(b, a, cs[2])

	ca, cb, cc := &chain{c: a}, &chain{c: b}, &chain{c: cs[2]}
	ca.next, cc.prev = cb, cb
	cb.next, ca.prev = cc, cc
	cc.next, cb.prev = ca, ca

pack:
	for i := 3; i < n; i++ {
		place(ca.c, cb.c, cs[i])
		c := &chain{c: cs[i]}

		// Find the closest intersecting circle on the front-chain, measured
		// by distance along the chain, ahead or behind.
		j, k := cb.next, ca.prev
		sj, sk := cb.c.R, ca.c.R
		for {
			if sj <= sk {
				if intersects(j.c, c.c) {
					cb = j
					ca.next, cb.prev = cb, ca
					i--
					continue pack
				}
				sj += j.c.R
				j = j.next
			} else {
				if intersects(k.c, c.c) {
					ca = k
					ca.next, cb.prev = cb, ca
					i--
					continue pack
				}
				sk += k.c.R
				k = k.prev
			}
			if j == k.next {
				break
			}
		}

		// Insert c between a and b.
		c.prev, c.next = ca, cb
		ca.next, cb.prev = c, c
		cb = c

		// Pick the new closest pair to the centroid.
		best := score(ca)
		for c = c.next; c != cb; c = c.next {
			if s := score(c); s < best {
				ca, best = c, s
			}
		}
		cb = ca.next
	}

	front := []Circle{*cb.c}
	for c := cb.next; c != cb; c = c.next {
		front = append(front, *c.c)
	}
	e := encloseRandom(front, rnd)

	for _, c := range cs {
		c.X -= e.X
		c.Y -= e.Y
	}
	return e.R
}

// place positions c tangent to both a and b.
func place(b, a, c *Circle) {
	dx, dy := b.X-a.X, b.Y-a.Y
	d2 := dx*dx + dy*dy
	if d2 == 0 {
		c.X = a.X + c.R
		c.Y = a.Y
		return
	}
	a2 := (a.R + c.R) * (a.R + c.R)
	b2 := (b.R + c.R) * (b.R + c.R)
	if a2 > b2 {
		x := (d2 + b2 - a2) / (2 * d2)
		y := math.Sqrt(math.Max(0, b2/d2-x*x))
		c.X = b.X - x*dx - y*dy
		c.Y = b.Y - x*dy + y*dx
	} else {
		x := (d2 + a2 - b2) / (2 * d2)
		y := math.Sqrt(math.Max(0, a2/d2-x*x))
		c.X = a.X + x*dx - y*dy
		c.Y = a.Y + x*dy + y*dx
	}
}

func intersects(a, b *Circle) bool {
	dr := a.R + b.R - 1e-6
	dx, dy := b.X-a.X, b.Y-a.Y
	return dr > 0 && dr*dr > dx*dx+dy*dy
}

func score(n *chain) float64 {
	a, b := n.c, n.next.c
	ab := a.R + b.R
	if ab == 0 {
		return a.X*a.X + a.Y*a.Y
	}
	dx := (a.X*b.R + b.X*a.R) / ab
	dy := (a.Y*b.R + b.Y*a.R) / ab
	return dx*dx + dy*dy
}
