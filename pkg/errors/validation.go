package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateCanvas checks that a chart of the given size leaves a positive
// drawing area after padding is removed from both sides.
func ValidateCanvas(width, height, padding float64) error {
	for _, v := range []float64{width, height, padding} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidCanvas, "canvas dimensions must be finite")
		}
	}
	if padding < 0 {
		return New(ErrCodeInvalidCanvas, "padding must not be negative (got %g)", padding)
	}
	if width-2*padding <= 0 || height-2*padding <= 0 {
		return New(ErrCodeInvalidCanvas, "canvas %gx%g leaves no drawing area with padding %g", width, height, padding)
	}
	return nil
}

// ValidateLabel validates a genre or subgenre label.
//
// Labels end up as SVG text and as cache key material, so control characters
// are rejected. Empty labels are allowed; they render as blank text.
func ValidateLabel(label string) error {
	if len(label) > 256 {
		return New(ErrCodeInvalidRecord, "label too long (max 256 characters)")
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRecord, "label %q contains control characters", label)
		}
	}
	return nil
}

// ValidatePath validates an output path supplied over an untrusted channel
// (the HTTP server). It prevents path traversal and absolute paths.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a remote data location.
// Only http and https schemes are accepted.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
