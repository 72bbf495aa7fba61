package formflow

import (
	"io/fs"

	"github.com/goliatone/go-formflow/pkg/renderers/html"
)

// AssetsFS exposes the bundled stylesheet so Go applications can serve it
// next to rendered pages.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formflow.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
