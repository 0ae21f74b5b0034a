package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizlab/pkg/pipeline"
)

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	return c.hierarchyChartCommand(pipeline.ChartTree, "Render the genre hierarchy as a linkage tree")
}

// packCommand creates the pack command.
func (c *CLI) packCommand() *cobra.Command {
	return c.hierarchyChartCommand(pipeline.ChartPack, "Render the genre hierarchy as a circle pack")
}

func (c *CLI) hierarchyChartCommand(chart, short string) *cobra.Command {
	var (
		flags chartFlags
		hf    hierarchyFlags
	)

	cmd := &cobra.Command{
		Use:   chart + " [records]",
		Short: short,
		Long: short + `.

Records are read from a CSV file with genre, subgenre and streams columns,
an http(s) URL serving the same CSV, or a postgres:// connection string
(append #schema.table to pick the table). Without an argument the [data]
records setting from the config file is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.config().options()
			if len(args) == 1 {
				opts.Records = args[0]
			}
			flags.apply(cmd.Flags(), &opts)
			hf.apply(cmd.Flags(), &opts)
			opts.Charts = []string{chart}
			return c.runHierarchyChart(cmd.Context(), chart, opts, flags)
		},
	}

	flags.register(cmd.Flags(), strings.Join(pipeline.FormatsFor(chart), ", "))
	hf.register(cmd.Flags(), chart)
	return cmd
}

func (c *CLI) runHierarchyChart(ctx context.Context, chart string, opts pipeline.Options, flags chartFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", chart))
	spinner.Start()

	res, err := runner.RunHierarchy(ctx, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Rendering %s failed", chart))
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %s", chart))

	cr := res.Charts[chart]
	paths, err := writeArtifacts(cr.Artifacts, flags.output, chart)
	if err != nil || flags.output == stdoutPath {
		return err
	}

	printSuccess("Rendered %s", chart)
	printStats([]string{
		fmt.Sprintf("%d genres", res.Nested.Len()),
		fmt.Sprintf("%d nodes", len(res.Root.Descendants())),
	}, cr.CacheHit)
	printPaths(paths)
	return nil
}

// mapCommand creates the map command.
func (c *CLI) mapCommand() *cobra.Command {
	var (
		flags chartFlags
		mf    mapFlags
	)

	cmd := &cobra.Command{
		Use:   "map [topology]",
		Short: "Render the world map with weighted points",
		Long: `Render the world map with weighted points.

The boundaries are TopoJSON (the --object is converted to features) or
GeoJSON. Points come from --points (a lat,lon,weight CSV) or from --geoip
with --ips, which resolves IP addresses against a GeoIP2 City database and
weights each location by its hit count. With neither, three demo points are
drawn.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.config().options()
			if len(args) == 1 {
				opts.Topology = args[0]
			}
			flags.apply(cmd.Flags(), &opts)
			if err := mf.apply(cmd.Flags(), &opts); err != nil {
				return err
			}
			opts.Charts = []string{pipeline.ChartMap}
			return c.runMap(cmd.Context(), opts, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.output, "output", "o", "", "output file (single format) or base path")
	fs.StringVarP(&flags.formats, "format", "f", "", "output format(s), comma-separated: "+strings.Join(pipeline.FormatsFor(pipeline.ChartMap), ", "))
	fs.StringVar(&flags.style, "style", "", "marker style: simple (default), handdrawn")
	fs.Uint64Var(&flags.seed, "seed", 0, "random seed for the handdrawn style")
	fs.BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&flags.refresh, "refresh", false, "refetch remote sources")
	mf.register(fs)
	return cmd
}

func (c *CLI) runMap(ctx context.Context, opts pipeline.Options, flags chartFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Rendering map...")
	spinner.Start()

	res, err := runner.RunMap(ctx, opts)
	if err != nil {
		spinner.StopWithError("Rendering map failed")
		return err
	}
	spinner.Stop()
	prog.done("Rendered map")

	paths, err := writeArtifacts(res.Chart.Artifacts, flags.output, pipeline.ChartMap)
	if err != nil || flags.output == stdoutPath {
		return err
	}

	printSuccess("Rendered map")
	printStats([]string{
		fmt.Sprintf("%d regions", len(res.Features.Features)),
		fmt.Sprintf("%d points", len(res.Points)),
	}, res.Chart.CacheHit)
	printPaths(paths)
	return nil
}

func printPaths(paths []string) {
	for _, p := range paths {
		if p != stdoutPath {
			printFile(p)
		}
	}
}
