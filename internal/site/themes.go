package site

import (
	"fmt"
	"html/template"
	"io"

	"github.com/starford/notepress/internal/apperr"
)

// Entry is one record as shown on the index page.
type Entry struct {
	Title string
	Href  string
	Date  string
	// Cover is the site-relative path of the first attachment, if any.
	Cover string
}

// Index is the data an index theme renders.
type Index struct {
	SiteName string
	Entries  []Entry // newest first
}

// Theme renders the site's index page.
type Theme interface {
	Name() string
	RenderIndex(w io.Writer, idx Index) error
}

type templateTheme struct {
	name string
	tmpl *template.Template
}

func (t *templateTheme) Name() string { return t.name }

func (t *templateTheme) RenderIndex(w io.Writer, idx Index) error {
	return t.tmpl.Execute(w, idx)
}

const pageHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="style.css">
<title>{{.SiteName}}</title>
</head>
<body>
<h1>{{.SiteName}}</h1>
`

const blogIndex = pageHead + `<ul class="notes-list">
{{- range .Entries}}
<li>
<div class="note-link">
<a href="{{.Href}}">{{.Title}}</a>
<span class="note-date">{{.Date}}</span>
</div>
</li>
{{- end}}
</ul>
</body>
</html>
`

const photosIndex = pageHead + `<div class="photo-grid">
{{- range .Entries}}
<a href="{{.Href}}" class="photo-item">
<div class="photo-container">
{{- if .Cover}}
<img src="{{.Cover}}" alt="{{.Title}}">
{{- else}}
<div class="photo-placeholder">No image</div>
{{- end}}
</div>
<div class="photo-title">{{.Title}}</div>
<div class="photo-date">{{.Date}}</div>
</a>
{{- end}}
</div>
</body>
</html>
`

var themes = map[string]Theme{
	"blog":   &templateTheme{name: "blog", tmpl: template.Must(template.New("blog").Parse(blogIndex))},
	"photos": &templateTheme{name: "photos", tmpl: template.Must(template.New("photos").Parse(photosIndex))},
}

// ThemeNames lists the available index themes.
func ThemeNames() []string {
	return []string{"blog", "photos"}
}

// ThemeByName returns the named theme.
func ThemeByName(name string) (Theme, error) {
	t, ok := themes[name]
	if !ok {
		return nil, fmt.Errorf("site: theme %q: %w", name, apperr.ErrUnsupported)
	}
	return t, nil
}
