package render

import (
	"bytes"
	"os/exec"
	"strconv"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// rsvgBinary is the librsvg converter used for PNG and PDF output.
var rsvgBinary = "rsvg-convert"

// ToPDF converts SVG to PDF.
func ToPDF(svg []byte) ([]byte, error) {
	return rsvg(svg, FormatPDF)
}

// ToPNG converts SVG to PNG at scale times the SVG size. A non-positive
// scale uses DefaultPNGScale.
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = DefaultPNGScale
	}
	return rsvg(svg, FormatPNG, "--zoom", strconv.FormatFloat(scale, 'f', 2, 64))
}

func rsvg(svg []byte, format string, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(rsvgBinary)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s output needs %s from librsvg (brew install librsvg, apt install librsvg2-bin)", format, rsvgBinary)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(bin, append([]string{"--format", format}, args...)...)
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "%s: %s", rsvgBinary, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
