package render

import (
	"slices"
	"strings"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/render/styles"
	"github.com/matzehuels/vizlab/pkg/render/styles/handdrawn"
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatDOT  = "dot"
	FormatHTML = "html"
	FormatJSON = "json"
)

// Style names.
const (
	StyleSimple    = "simple"
	StyleHanddrawn = "handdrawn"
)

// DefaultStyle is used when no style is configured.
const DefaultStyle = StyleSimple

// DefaultSeed drives the handdrawn wobble when no seed is configured.
const DefaultSeed = uint64(42)

// DefaultPNGScale renders PNGs at twice the SVG size.
const DefaultPNGScale = 2.0

// ParseStyle returns the style registered under name. The empty string
// selects DefaultStyle.
func ParseStyle(name string, seed uint64) (styles.Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StyleSimple:
		return styles.Simple{}, nil
	case StyleHanddrawn:
		if seed == 0 {
			seed = DefaultSeed
		}
		return handdrawn.New(seed), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidStyle, "invalid style %q (must be one of: simple, handdrawn)", name)
}

// ValidateFormats checks every entry of formats against allowed.
func ValidateFormats(formats, allowed []string) error {
	for _, f := range formats {
		if !slices.Contains(allowed, f) {
			return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of: %s)", f, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// Convert turns SVG into format. SVG passes through unchanged.
func Convert(svg []byte, format string) ([]byte, error) {
	switch format {
	case FormatSVG:
		return svg, nil
	case FormatPNG:
		return ToPNG(svg, DefaultPNGScale)
	case FormatPDF:
		return ToPDF(svg)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "cannot convert SVG to %q", format)
}
