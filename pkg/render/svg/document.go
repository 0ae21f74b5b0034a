// Package svg is the small retained-mode SVG writer shared by all charts.
//
// A [Document] holds ordered, keyed [Group]s; a group holds keyed elements.
// Charts that redraw (the map's point overlay) bind new data to a group with
// [Group.Join], which creates, updates and removes elements so the group
// matches the data exactly:
//
//	doc := svg.New(800, 600, "viz")
//	pts := doc.Group("points")
//	pts.Join(keys, func(key string, i int) []byte { ... })
//	doc.WriteTo(w)
package svg

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/matzehuels/vizlab/pkg/render/styles"
)

// Document is an <svg> root element.
type Document struct {
	Width, Height float64
	Class         string
	Defs          []byte

	groups []*Group
}

// New returns an empty document.
func New(width, height float64, class string) *Document {
	return &Document{Width: width, Height: height, Class: class}
}

// Group returns the group with the given class, creating it at the end of
// the document if needed.
func (d *Document) Group(class string) *Group {
	for _, g := range d.groups {
		if g.Class == class {
			return g
		}
	}
	g := &Group{Class: class, elems: map[string][]byte{}}
	d.groups = append(d.groups, g)
	return g
}

// Groups returns the groups in document order.
func (d *Document) Groups() []*Group { return slices.Clone(d.groups) }

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	class := ""
	if d.Class != "" {
		class = fmt.Sprintf(` class="%s"`, styles.EscapeXML(d.Class))
	}
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg"%s width="%.0f" height="%.0f" viewBox="0 0 %.1f %.1f">`+"\n",
		class, d.Width, d.Height, d.Width, d.Height)
	buf.Write(d.Defs)
	for _, g := range d.groups {
		g.write(&buf)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// WriteTo implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Bytes())
	return int64(n), err
}

// Group is a <g> element whose children are addressed by key.
type Group struct {
	Class     string
	Transform string

	keys  []string
	elems map[string][]byte
}

// Keys returns the element keys in render order.
func (g *Group) Keys() []string { return slices.Clone(g.keys) }

// Len returns the number of elements.
func (g *Group) Len() int { return len(g.keys) }

// Element returns the markup bound to key.
func (g *Group) Element(key string) ([]byte, bool) {
	b, ok := g.elems[key]
	return b, ok
}

// Append adds an element after the existing ones. An existing key is
// replaced in place.
func (g *Group) Append(key string, markup []byte) {
	if _, ok := g.elems[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.elems[key] = markup
}

// Join reconciles the group with keys: entering and updated elements are
// (re)built with build, exiting ones are removed, and the final order
// follows keys. build receives each key and its index in keys.
func (g *Group) Join(keys []string, build func(key string, i int) []byte) Diff {
	diff := Join(g.keys, keys)
	for _, k := range diff.Exit {
		delete(g.elems, k)
	}

	order := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		g.elems[k] = build(k, i)
		order = append(order, k)
	}
	g.keys = order
	return diff
}

func (g *Group) write(buf *bytes.Buffer) {
	fmt.Fprintf(buf, `<g class="%s"`, styles.EscapeXML(g.Class))
	if g.Transform != "" {
		fmt.Fprintf(buf, ` transform="%s"`, g.Transform)
	}
	buf.WriteString(">\n")
	for _, k := range g.keys {
		buf.Write(g.elems[k])
	}
	buf.WriteString("</g>\n")
}
