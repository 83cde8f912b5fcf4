package view

import (
	"bytes"
	"fmt"
	"go-pages-app/internal/search"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"
)

// DefaultsFunc supplies data every page needs, such as the current user and flash messages.
type DefaultsFunc func(r *http.Request) map[string]interface{}

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
	defaults  DefaultsFunc
}

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"preview": func(s string, n int) string {
		p := search.Preview(s, n)
		if p != s {
			return p + "…"
		}
		return p
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
}

// New creates a new View by parsing all templates from the given filesystem.
// Every file in templates/pages is parsed together with all layouts and named by its base name.
func New(templateFS fs.FS) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(Funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

// SetDefaults installs fn to populate shared template data on every render.
func (v *View) SetDefaults(fn DefaultsFunc) {
	v.defaults = fn
}

// Render executes a specific template by name and writes it with the given status code
// (0 means 200). Values in data take precedence over defaults.
//
// The status line is written only after the defaults have run, so session changes they
// make (such as popping flash messages) are still part of the response.
func (v *View) Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	merged := make(map[string]interface{})
	if v.defaults != nil && r != nil {
		for k, val := range v.defaults(r) {
			merged[k] = val
		}
	}
	for k, val := range data {
		merged[k] = val
	}

	// Execute into a buffer first so a template error does not leave a half-written page.
	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, name, merged); err != nil {
		return err
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
