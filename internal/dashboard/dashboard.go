// Package dashboard serves the embedded status UI.
package dashboard

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed assets
var assets embed.FS

// Handler returns an HTTP handler that serves the embedded dashboard
// assets; index.html at /, style.css and app.js at their paths.
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// "assets" is always present in the embedded FS.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
