package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/vizlab/pkg/render"
)

// stdoutPath selects standard output for a single artifact.
const stdoutPath = "-"

var knownFormats = []string{
	render.FormatSVG, render.FormatPNG, render.FormatPDF,
	render.FormatDOT, render.FormatHTML, render.FormatJSON,
}

// basePath derives the base output path. An empty output falls back to
// fallback; a known format extension on output is stripped.
func basePath(output, fallback string) string {
	if output == "" {
		return fallback
	}
	ext := filepath.Ext(output)
	if slices.Contains(knownFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifacts writes one file per format. With a single artifact and an
// explicit output, that exact path (or "-" for stdout) is used; otherwise
// files are named base.format. It returns the written paths in format
// order.
func writeArtifacts(artifacts map[string][]byte, output, fallback string) ([]string, error) {
	formats := slices.Sorted(maps.Keys(artifacts))
	if len(formats) == 1 && output != "" {
		if err := writeFile(output, artifacts[formats[0]]); err != nil {
			return nil, err
		}
		return []string{output}, nil
	}
	if output == stdoutPath {
		return nil, fmt.Errorf("cannot write %d formats to stdout", len(formats))
	}

	base := basePath(output, fallback)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if err := writeFile(path, artifacts[f]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

// openOutput opens path for writing, creating parent directories. "-" or
// an empty path means stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == stdoutPath {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
