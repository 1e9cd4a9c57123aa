package app

import (
	"html/template"
	"io"
	"slices"

	"github.com/DIMO-Network/fipe-quoter/internal/cascade"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;max-width:46rem;margin:2rem auto;padding:0 1rem}
label{display:block;margin-top:1rem;font-weight:bold}
select{width:100%}
.banner{padding:.6rem;margin:.6rem 0;border-radius:.3rem}
.info{background:#e7f1fb}.warning{background:#fff6db}.error{background:#fde8e8}
pre{background:#f4f4f4;padding:.6rem;overflow:auto}
</style>
</head>
<body>
<form method="get" action="/">
{{- range .Widgets}}
{{- if eq .Kind "header"}}
<h1>{{.Text}} 🚗</h1>{{if .Label}}<p>{{.Label}}</p>{{end}}
{{- else if eq .Kind "subheader"}}
<h2>{{.Text}}</h2>
{{- else if eq .Kind "select"}}
<label for="{{.Name}}">{{.Label}}</label>
<select id="{{.Name}}" name="{{.Name}}" onchange="this.form.submit()">
{{- range .Options}}<option value="{{.Label}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
</select>
{{- else if eq .Kind "multiselect"}}
<label for="{{.Name}}">{{.Label}}</label>
<select id="{{.Name}}" name="{{.Name}}" multiple size="8" onchange="this.form.submit()">
{{- range .Options}}<option value="{{.Label}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
</select>
{{- else if eq .Kind "button"}}
<p><button type="submit" name="{{.Name}}" value="1">{{.Label}}</button> <a href="/?reset=1">Limpar</a></p>
{{- else if eq .Kind "divider"}}
<hr>
{{- else if eq .Kind "field"}}
<p><strong>{{.Label}}:</strong> {{.Text}}</p>
{{- else if eq .Kind "text"}}
<pre>{{.Text}}</pre>
{{- else}}
<div class="banner {{.Kind}}">{{.Text}}</div>
{{- end}}
{{- end}}
</form>
</body>
</html>
`))

type option struct {
	Label    string
	Selected bool
}

type widget struct {
	Kind    string
	Name    string
	Label   string
	Text    string
	Options []option
}

// page collects the widgets of one render cycle and writes them as HTML.
type page struct {
	Title   string
	Widgets []widget
}

var _ cascade.UI = (*page)(nil)

func newPage() *page {
	return &page{Title: "Consulta FIPE"}
}

func (p *page) add(w widget) {
	p.Widgets = append(p.Widgets, w)
}

func (p *page) Header(title, subtitle string) {
	p.Title = title
	p.add(widget{Kind: "header", Text: title, Label: subtitle})
}

func (p *page) Select(name, label string, options []string, selected string) {
	p.add(widget{Kind: "select", Name: name, Label: label, Options: toOptions(options, []string{selected})})
}

func (p *page) MultiSelect(name, label string, options []string, selected []string) {
	p.add(widget{Kind: "multiselect", Name: name, Label: label, Options: toOptions(options, selected)})
}

func (p *page) Button(name, label string) {
	p.add(widget{Kind: "button", Name: name, Label: label})
}

func (p *page) Info(msg string)    { p.add(widget{Kind: "info", Text: msg}) }
func (p *page) Warning(msg string) { p.add(widget{Kind: "warning", Text: msg}) }
func (p *page) Error(msg string)   { p.add(widget{Kind: "error", Text: msg}) }
func (p *page) Text(text string)   { p.add(widget{Kind: "text", Text: text}) }
func (p *page) Divider()           { p.add(widget{Kind: "divider"}) }

func (p *page) Subheader(text string) {
	p.add(widget{Kind: "subheader", Text: text})
}

func (p *page) Field(label, value string) {
	p.add(widget{Kind: "field", Label: label, Text: value})
}

func (p *page) render(w io.Writer) error {
	return pageTemplate.Execute(w, p)
}

func toOptions(labels, selected []string) []option {
	opts := make([]option, 0, len(labels))
	for _, label := range labels {
		opts = append(opts, option{Label: label, Selected: slices.Contains(selected, label)})
	}
	return opts
}
