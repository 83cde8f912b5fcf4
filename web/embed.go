package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// TemplateFS holds templates/layouts/*.html and templates/pages/*.html.
var TemplateFS fs.FS = templateFS

// StaticFS holds the stylesheet and other assets under static/.
var StaticFS fs.FS = staticFS

// Static returns the assets rooted at static/, as served under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
