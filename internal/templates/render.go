// Package templates implements the popup template grammar and the HTML
// fragments the viewer streams to the browser.
//
// A popup template goes through two passes: %i18n("key")% tokens are
// resolved once when the template is fetched, %attribute% tokens are
// resolved against a feature every time it is selected.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"os"
)

//go:embed fragments/*.html
var embeddedFragments embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// safe marks an already rendered popup body as trusted HTML.
	"safe": func(s string) template.HTML {
		return template.HTML(s)
	},
}

// Renderer executes HTML fragment templates. It is safe for concurrent use.
type Renderer struct {
	templates *template.Template
}

// New creates a renderer from the *.html fragments in dir. An empty dir
// uses the embedded fragments.
func New(dir string) (*Renderer, error) {
	tmpl, err := parse(fragmentsFS(dir))
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.templates.ExecuteTemplate(buf, name, data)
}

func fragmentsFS(dir string) fs.FS {
	if dir == "" {
		sub, _ := fs.Sub(embeddedFragments, "fragments")
		return sub
	}
	return os.DirFS(dir)
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, "*.html")
}
