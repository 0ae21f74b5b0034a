package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vizlab/pkg/mapview"
	"github.com/matzehuels/vizlab/pkg/pipeline"
)

// Explore key bindings.
const (
	zoomStep = 2.0
	panStep  = 0.1 // fraction of the map size
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)

	canvasLandStyle   = lipgloss.NewStyle().Foreground(colorGray)
	canvasMarkerStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// exploreCommand creates the explore command, an interactive terminal map.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		flags chartFlags
		mf    mapFlags
	)

	cmd := &cobra.Command{
		Use:   "explore [topology]",
		Short: "Pan and zoom the map in the terminal",
		Long: `Pan and zoom the map in the terminal.

Keys: arrows (or h/j/k/l) pan, + and - zoom around the center, tab selects
the next point, r resets the view, q quits. Zoom and pan are limited the same
way as in the rendered map.`,
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
			return c.runExplore(cmd.Context(), opts, flags.noCache)
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&flags.refresh, "refresh", false, "refetch remote sources")
	mf.register(fs)
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger
	if err := opts.ValidateForMap(); err != nil {
		return err
	}

	fc, _, err := runner.LoadFeatures(ctx, opts)
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}
	pts, err := runner.LoadPoints(ctx, opts)
	if err != nil {
		return fmt.Errorf("load points: %w", err)
	}
	m, err := runner.BuildMap(ctx, opts, fc, pts)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(newExploreModel(m), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// exploreModel - Interactive map
// =============================================================================

// exploreModel draws the map's regions and markers onto a character grid.
// Every key goes through the map's gestures, so the zoom limits apply.
type exploreModel struct {
	m        *mapview.Map
	cols     int
	rows     int
	selected int // marker index, -1 for none
}

func newExploreModel(m *mapview.Map) exploreModel {
	return exploreModel{m: m, cols: 80, rows: 24, selected: -1}
}

func (e exploreModel) Init() tea.Cmd { return nil }

func (e exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	w, h := e.m.Size()
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.cols = max(msg.Width, 10)
		e.rows = max(msg.Height-legendHeight(e.m), 5)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return e, tea.Quit
		case "left", "h":
			e.m.Gesture(mapview.PanBy(w*panStep, 0))
		case "right", "l":
			e.m.Gesture(mapview.PanBy(-w*panStep, 0))
		case "up", "k":
			e.m.Gesture(mapview.PanBy(0, h*panStep))
		case "down", "j":
			e.m.Gesture(mapview.PanBy(0, -h*panStep))
		case "+", "=":
			e.m.Gesture(mapview.ZoomAt(zoomStep, w/2, h/2))
		case "-", "_":
			e.m.Gesture(mapview.ZoomAt(1/zoomStep, w/2, h/2))
		case "r":
			e.m.Gesture(mapview.Reset())
			e.selected = -1
		case "tab":
			if n := len(e.m.Markers()); n > 0 {
				e.selected = (e.selected + 1) % n
			}
		}
	}
	return e, nil
}

func (e exploreModel) View() string {
	var b strings.Builder
	b.WriteString(e.canvas())
	b.WriteString("\n")

	t := e.m.Zoom()
	b.WriteString(StyleTitle.Render("vizlab explore"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  zoom %.4gx  %s", t.K, t.String())))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←↑↓→ pan  +/- zoom  tab select  r reset  q quit"))
	b.WriteString("\n")
	if legend := e.legend(); legend != "" {
		b.WriteString(legend)
	}
	return b.String()
}

// legendRows caps the marker table.
const legendRows = 5

func legendHeight(m *mapview.Map) int {
	n := min(len(m.Markers()), legendRows)
	if n == 0 {
		return 3
	}
	return 3 + n + 4 // status lines plus the bordered table
}

// legend lists a window of markers around the selected one.
func (e exploreModel) legend() string {
	markers := e.m.Markers()
	if len(markers) == 0 {
		return ""
	}
	start := 0
	if e.selected >= legendRows {
		start = e.selected - legendRows + 1
	}
	end := min(start+legendRows, len(markers))

	rows := make([][]string, 0, end-start)
	for i := start; i < end; i++ {
		mk := markers[i]
		cursor := "  "
		if i == e.selected {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%.2f, %.2f", mk.Point.Lat, mk.Point.Lon),
			fmt.Sprintf("%g", mk.Point.Weight),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Location", "Weight").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if start+row == e.selected {
				return listSelectedStyle
			}
			return listNormalStyle
		}).
		Render()
}

// canvas rasterizes the zoomed map to cols×rows cells.
func (e exploreModel) canvas() string {
	g := newGrid(e.cols, e.rows)
	w, h := e.m.Size()
	sx, sy := float64(e.cols)/w, float64(e.rows)/h
	t := e.m.Zoom()

	cell := func(x, y float64) (int, int) {
		x, y = t.Apply(x, y)
		return int(math.Floor(x * sx)), int(math.Floor(y * sy))
	}

	if fc := e.m.Features(); fc != nil {
		for _, f := range fc.Features {
			if f == nil || f.Geometry == nil {
				continue
			}
			eachLine(f.Geometry, func(line []orb.Point) {
				px, py, have := 0, 0, false
				for _, p := range line {
					x, y, ok := e.m.Project(p.Lon(), p.Lat())
					if !ok {
						have = false
						continue
					}
					cx, cy := cell(x, y)
					// A jump across most of the map is an antimeridian wrap.
					if have && abs(cx-px) < e.cols/2 {
						g.line(px, py, cx, cy, '·')
					}
					px, py, have = cx, cy, true
				}
			})
		}
	}

	for i, mk := range e.m.Markers() {
		cx, cy := cell(mk.X, mk.Y)
		r := '●'
		if i == e.selected {
			r = '◉'
		}
		g.mark(cx, cy, r)
	}
	return g.String()
}

// eachLine calls fn for every ring or line string in geom.
func eachLine(geom orb.Geometry, fn func([]orb.Point)) {
	switch g := geom.(type) {
	case orb.LineString:
		fn(g)
	case orb.MultiLineString:
		for _, ls := range g {
			fn(ls)
		}
	case orb.Ring:
		fn(g)
	case orb.Polygon:
		for _, r := range g {
			fn(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			eachLine(p, fn)
		}
	case orb.Collection:
		for _, c := range g {
			eachLine(c, fn)
		}
	}
}

// grid is a character canvas. Marker cells are styled separately.
type grid struct {
	cols, rows int
	cells      [][]rune
	markers    map[[2]int]bool
}

func newGrid(cols, rows int) *grid {
	cells := make([][]rune, rows)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(" ", cols))
	}
	return &grid{cols: cols, rows: rows, cells: cells, markers: make(map[[2]int]bool)}
}

func (g *grid) set(x, y int, r rune) bool {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return false
	}
	g.cells[y][x] = r
	return true
}

func (g *grid) mark(x, y int, r rune) {
	if g.set(x, y, r) {
		g.markers[[2]int{x, y}] = true
	}
}

// line draws from (x0, y0) to (x1, y1), clipping cell by cell.
func (g *grid) line(x0, y0, x1, y1 int, r rune) {
	n := max(abs(x1-x0), abs(y1-y0))
	if n == 0 {
		g.set(x0, y0, r)
		return
	}
	for i := 0; i <= n; i++ {
		x := x0 + (x1-x0)*i/n
		y := y0 + (y1-y0)*i/n
		g.set(x, y, r)
	}
}

func (g *grid) String() string {
	var b strings.Builder
	for y, row := range g.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x, r := range row {
			switch {
			case g.markers[[2]int{x, y}]:
				b.WriteString(canvasMarkerStyle.Render(string(r)))
			case r == ' ':
				b.WriteRune(r)
			default:
				b.WriteString(canvasLandStyle.Render(string(r)))
			}
		}
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
