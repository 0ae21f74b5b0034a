package styles

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	fontCharWidth = 0.55
	ellipsis      = ".."
)

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// TruncateLabel shortens label so it fits in width at the given font size,
// keeping at least three characters.
func TruncateLabel(label string, width, fontSize float64) string {
	if width <= 0 || fontSize <= 0 {
		return label
	}
	maxChars := max(3, int(width/(fontSize*fontCharWidth)))
	r := []rune(label)
	if len(r) <= maxChars {
		return label
	}
	return string(r[:maxChars-len(ellipsis)]) + ellipsis
}

// Attrs writes the optional presentation attributes shared by all shapes.
func Attrs(buf *bytes.Buffer, id, class, fill, stroke string, strokeWidth, opacity float64) {
	if id != "" {
		fmt.Fprintf(buf, ` id="%s"`, EscapeXML(id))
	}
	if class != "" {
		fmt.Fprintf(buf, ` class="%s"`, EscapeXML(class))
	}
	if fill != "" {
		fmt.Fprintf(buf, ` fill="%s"`, fill)
	}
	if stroke != "" {
		fmt.Fprintf(buf, ` stroke="%s"`, stroke)
	}
	if strokeWidth > 0 {
		fmt.Fprintf(buf, ` stroke-width="%g"`, strokeWidth)
	}
	if opacity > 0 && opacity < 1 {
		fmt.Fprintf(buf, ` fill-opacity="%.2f"`, opacity)
	}
}

// WriteText writes t as a <text> element in the given font family.
func WriteText(buf *bytes.Buffer, t Text, fontFamily string) {
	buf.WriteString(`  <text`)
	Attrs(buf, t.ID, t.Class, "", "", 0, 0)
	fmt.Fprintf(buf, ` x="%.2f" y="%.2f"`, t.X, t.Y)
	if t.DY != 0 {
		fmt.Fprintf(buf, ` dy="%g"`, t.DY)
	}
	if t.FontSize > 0 {
		fmt.Fprintf(buf, ` font-size="%g"`, t.FontSize)
	}
	if t.Anchor != "" {
		fmt.Fprintf(buf, ` text-anchor="%s"`, t.Anchor)
	}
	if fontFamily != "" {
		fmt.Fprintf(buf, ` font-family="%s"`, fontFamily)
	}
	fmt.Fprintf(buf, `>%s</text>`+"\n", EscapeXML(t.Label))
}
