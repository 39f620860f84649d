package export

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/kiraleos/sermon-assistant/internal/sermon"
)

var previewFuncs = template.FuncMap{
	// lines escapes s and keeps its line breaks.
	"lines": func(s string) template.HTML {
		return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br/>"))
	},
}

var previewTemplate = template.Must(template.New("preview").Funcs(previewFuncs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<h2>Introduction</h2><p>{{lines .Intro}}</p>
<h2>Content</h2><p>{{lines .Content}}</p>
<h2>Verses and Notes</h2>
{{range .Notes}}<b>{{.Ref}}:</b> {{lines .Text}}<br>Note: {{lines .Note}}<br><br>
{{end}}{{with .Header}}<i>Header:<br>{{range $i, $l := .}}{{if $i}}<br>{{end}}{{$l}}{{end}}</i><br>
{{end}}{{with .Footer}}<i>Footer:<br>{{range $i, $l := .}}{{if $i}}<br>{{end}}{{$l}}{{end}}</i>
{{end}}</body>
</html>
`))

type previewData struct {
	Title   string
	Intro   string
	Content string
	Notes   []sermon.Note
	Header  []string
	Footer  []string
}

// WritePreview renders the sermon as a standalone HTML page. Notes appear in
// stored order and header/footer blocks only when they have fields set.
func WritePreview(w io.Writer, s *sermon.Sermon) error {
	data := previewData{
		Title:   s.Title,
		Intro:   s.Intro,
		Content: s.Content,
		Notes:   s.VersesNotes,
		Header:  s.Header.Lines(),
		Footer:  s.Footer.Lines(),
	}
	if err := previewTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	return nil
}
