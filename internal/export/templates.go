package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var roadmapTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/roadmap.html")
	if err != nil {
		roadmapTemplate = template.Must(template.New("roadmap").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	roadmapTemplate = template.Must(template.New("roadmap").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for roadmap template rendering.
type TemplateData struct {
	Title       string
	Description string
	ExportedAt  time.Time
	Milestones  []TemplateMilestone
}

// TemplateMilestone holds one milestone for the template.
type TemplateMilestone struct {
	Title       string
	Description string
	Objectives  []string
}

// RenderRoadmapHTML renders the roadmap template with provided data.
func RenderRoadmapHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := roadmapTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load.
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .milestone { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  {{range .Milestones}}
  <div class="milestone">
    <h2>{{.Title}}</h2>
    <ul>{{range .Objectives}}<li>{{.}}</li>{{end}}</ul>
  </div>
  {{end}}
</body>
</html>`
