package styles

import (
	"bytes"
	"fmt"
)

// Simple draws primitives exactly as described: plain circles, the given
// link path and sans-serif labels.
type Simple struct{}

func (Simple) Name() string { return "simple" }

func (Simple) RenderDefs(*bytes.Buffer) {}

func (Simple) RenderCircle(buf *bytes.Buffer, c Circle) {
	fmt.Fprintf(buf, `  <circle cx="%.2f" cy="%.2f" r="%.2f"`, c.CX, c.CY, c.R)
	Attrs(buf, c.ID, c.Class, c.Fill, c.Stroke, c.StrokeWidth, c.Opacity)
	buf.WriteString("/>\n")
}

func (Simple) RenderLink(buf *bytes.Buffer, l Link) {
	fmt.Fprintf(buf, `  <path d="%s"`, l.D)
	Attrs(buf, l.ID, l.Class, "none", l.Stroke, l.StrokeWidth, 0)
	buf.WriteString("/>\n")
}

func (Simple) RenderText(buf *bytes.Buffer, t Text) {
	WriteText(buf, t, "sans-serif")
}
