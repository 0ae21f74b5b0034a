package cli

import (
	"html/template"
	"io"

	"github.com/matzehuels/vizlab/pkg/pipeline"
)

// pageChart is one mount point on the index page. SVG is inlined when set,
// otherwise Src is referenced; Err replaces the chart when it failed.
type pageChart struct {
	ID    string
	Title string
	SVG   template.HTML
	Src   string
	Err   string
}

type page struct {
	Title  string
	Charts []pageChart
}

var chartTitles = map[string]string{
	pipeline.ChartTree: "Linkage tree",
	pipeline.ChartPack: "Circle pack",
	pipeline.ChartMap:  "World map",
}

// mountID returns the element id a chart is drawn into.
func mountID(chart string) string { return chart + "1" }

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 2rem; color: #222; }
  section { margin-bottom: 3rem; }
  .error { color: #c0392b; font-family: monospace; }
  svg, object { max-width: 100%; height: auto; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Charts}}<section>
<h2>{{.Title}}</h2>
<div id="{{.ID}}">
{{- if .Err}}<p class="error">{{.Err}}</p>
{{- else if .SVG}}{{.SVG}}
{{- else}}<object type="image/svg+xml" data="{{.Src}}"></object>
{{- end}}</div>
</section>
{{end}}</body>
</html>
`))

// writePage renders the index page with one mount point per chart, in the
// order given. chart supplies each mount point's content.
func writePage(w io.Writer, title string, charts []string, chart func(name string) pageChart) error {
	p := page{Title: title}
	for _, name := range charts {
		pc := chart(name)
		pc.ID = mountID(name)
		pc.Title = chartTitles[name]
		p.Charts = append(p.Charts, pc)
	}
	return pageTemplate.Execute(w, p)
}
