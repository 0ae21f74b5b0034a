package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/vizlab/pkg/pipeline"
)

// Aggregate output encodings.
const (
	encodingJSON = "json"
	encodingYAML = "yaml"
)

// aggregateCommand creates the aggregate command, which prints the genre →
// subgenre mean streams, or the full hierarchy with --hierarchy.
func (c *CLI) aggregateCommand() *cobra.Command {
	var (
		encoding  string
		hierarchy bool
		output    string
		policy    string
		rootName  string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate [records]",
		Short: "Print the per-subgenre mean streams as JSON or YAML",
		Long: `Print the per-subgenre mean streams as JSON or YAML.

Records are grouped by genre, then subgenre, and each group's streams are
averaged. With --hierarchy the summed and sorted hierarchy is printed
instead, including each node's depth and height.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.config().options()
			if len(args) == 1 {
				opts.Records = args[0]
			}
			if cmd.Flags().Changed("policy") {
				opts.Policy = policy
			}
			if cmd.Flags().Changed("root") {
				opts.RootName = rootName
			}
			if encoding != encodingJSON && encoding != encodingYAML {
				return fmt.Errorf("invalid format: %s (must be 'json' or 'yaml')", encoding)
			}

			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()
			return c.runAggregate(cmd.Context(), out, opts, encoding, hierarchy, noCache)
		},
	}

	cmd.Flags().StringVarP(&encoding, "format", "f", encodingJSON, "output format: json, yaml")
	cmd.Flags().BoolVar(&hierarchy, "hierarchy", false, "print the hierarchy instead of the flat aggregate")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&policy, "policy", "", "non-numeric streams policy: reject (default), zero")
	cmd.Flags().StringVar(&rootName, "root", "", "root node name")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runAggregate(ctx context.Context, w io.Writer, opts pipeline.Options, encoding string, hierarchy, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	res, err := runner.BuildHierarchy(ctx, opts)
	if err != nil {
		return err
	}

	var v any = res.Nested
	if hierarchy {
		v = res.Root.View()
	}
	return encode(w, v, encoding)
}

// encode writes v as indented JSON or YAML.
func encode(w io.Writer, v any, encoding string) error {
	if encoding == encodingYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
