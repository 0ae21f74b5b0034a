package linkage

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
)

// RenderHTML renders the hierarchy as a standalone interactive ECharts
// page: an orthogonal left-to-right tree with expandable nodes. ECharts does
// its own layout, so root does not need to be laid out first.
func RenderHTML(root *hierarchy.Node, width, height float64, title string) ([]byte, error) {
	if err := errors.ValidateCanvas(width, height, 0); err != nil {
		return nil, err
	}

	tree := charts.NewTree()
	tree.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			Width:           fmt.Sprintf("%.0fpx", width),
			Height:          fmt.Sprintf("%.0fpx", height),
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)

	var data []opts.TreeData
	if !hierarchy.IsEmpty(root) {
		data = []opts.TreeData{*treeData(root)}
	}
	tree.AddSeries(title, data,
		charts.WithTreeOpts(opts.TreeChart{
			Layout:           "orthogonal",
			Orient:           "LR",
			InitialTreeDepth: -1,
			Label:            &opts.Label{Show: opts.Bool(true), Position: "top"},
			Leaves: &opts.TreeLeaves{
				Label: &opts.Label{Show: opts.Bool(true), Position: "right"},
			},
		}),
	)

	var buf bytes.Buffer
	if err := tree.Render(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render html tree")
	}
	return buf.Bytes(), nil
}

func treeData(n *hierarchy.Node) *opts.TreeData {
	d := &opts.TreeData{Name: n.Data.Name, Value: int(math.Round(n.Value))}
	for _, c := range n.Children {
		d.Children = append(d.Children, treeData(c))
	}
	return d
}
