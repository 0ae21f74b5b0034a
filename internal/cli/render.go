package cli

import (
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/pipeline"
	"github.com/matzehuels/vizlab/pkg/render"
)

const indexFile = "index.html"

// renderCommand creates the render command, which renders every chart into
// a directory together with an index page.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags  chartFlags
		hf     hierarchyFlags
		mf     mapFlags
		dir    string
		charts string
	)

	cmd := &cobra.Command{
		Use:   "render [records] [topology]",
		Short: "Render the tree, pack and map into a directory with an index page",
		Long: `Render the tree, pack and map into a directory with an index page.

The hierarchy charts and the map run independently: a failure in one is
reported and shown on the page without stopping the others. Formats a chart
cannot produce are skipped for that chart. Inputs not given as arguments
come from the config file.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.config().options()
			if len(args) > 0 {
				opts.Records = args[0]
			}
			if len(args) > 1 {
				opts.Topology = args[1]
			}
			flags.apply(cmd.Flags(), &opts)
			if err := mf.apply(cmd.Flags(), &opts); err != nil {
				return err
			}
			hf.apply(cmd.Flags(), &opts)
			if charts != "" {
				opts.Charts = parseFormats(charts)
			}
			return c.runRenderAll(cmd.Context(), dir, opts, flags)
		},
	}

	fs := cmd.Flags()
	flags.register(fs, "svg (default), png, pdf, json, dot, html")
	mf.register(fs)
	fs.StringVarP(&dir, "dir", "d", "out", "output directory")
	fs.StringVar(&charts, "charts", "", "charts to render, comma-separated: "+strings.Join(pipeline.Charts, ", "))
	hf.register(fs, pipeline.ChartTree, pipeline.ChartPack)
	// -o names single files; render always writes into --dir.
	_ = fs.MarkHidden("output")
	return cmd
}

func (c *CLI) runRenderAll(ctx context.Context, dir string, opts pipeline.Options, flags chartFlags) error {
	// The index page inlines the SVGs.
	if len(opts.Formats) == 0 {
		opts.Formats = []string{render.FormatSVG}
	} else if !slices.Contains(opts.Formats, render.FormatSVG) {
		opts.Formats = append(slices.Clone(opts.Formats), render.FormatSVG)
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Rendering charts...")
	spinner.Start()
	rep := runner.RunAll(ctx, opts)
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %d of %d charts", len(rep.Charts), len(rep.Charts)+len(rep.Errors)))

	order := requestedCharts(opts)
	for _, chart := range order {
		cr, ok := rep.Charts[chart]
		if !ok {
			continue
		}
		paths, err := writeArtifacts(cr.Artifacts, "", filepath.Join(dir, chart))
		if err != nil {
			return err
		}
		printSuccess("Rendered %s", chart)
		printStats([]string{fmt.Sprintf("%d formats", len(cr.Artifacts)), cr.Duration.Round(time.Millisecond).String()}, cr.CacheHit)
		printPaths(paths)
	}

	index := filepath.Join(dir, indexFile)
	out, err := openOutput(index)
	if err != nil {
		return err
	}
	err = writePage(out, "vizlab", order, func(chart string) pageChart {
		if err, failed := rep.Errors[chart]; failed {
			return pageChart{Err: errors.UserMessage(err)}
		}
		if cr, ok := rep.Charts[chart]; ok {
			if svg, ok := cr.Artifacts[render.FormatSVG]; ok {
				return pageChart{SVG: template.HTML(svg)}
			}
			return pageChart{Err: "no SVG rendered"}
		}
		return pageChart{}
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", index, err)
	}
	printFile(index)

	for _, chart := range order {
		if err, ok := rep.Errors[chart]; ok {
			printError("%s: %v", chart, err)
		}
	}
	return rep.Err()
}

// requestedCharts returns the charts RunAll was asked for, in page order.
func requestedCharts(opts pipeline.Options) []string {
	if len(opts.Charts) == 0 {
		return pipeline.Charts
	}
	var out []string
	for _, c := range pipeline.Charts {
		if slices.Contains(opts.Charts, c) {
			out = append(out, c)
		}
	}
	return out
}
