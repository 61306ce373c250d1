package view

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed layouts/*.html
var layoutFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the embedded assets.  Mount it under /static/.
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
