// Package render holds what the chart renderers share: output formats,
// style lookup and SVG conversion.
//
// # Renderers
//
//   - [linkage]: node-link tree (SVG, DOT via Graphviz, interactive HTML)
//   - [packing]: circle packing (SVG)
//   - the map renderer lives in mapview, next to its zoom state
//
// All of them produce SVG first. [ToPDF] and [ToPNG] convert that SVG with
// the external rsvg-convert tool (from librsvg):
//
//	svg, _ := linkage.RenderSVG(scene)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0) // 2x scale
//
// # Styles
//
// [ParseStyle] resolves a style name from flags or config into a
// [styles.Style]; "simple" is flat and "handdrawn" is sketchy and seeded.
package render
