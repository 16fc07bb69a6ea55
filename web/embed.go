// Package web embeds the HTML templates served by the view server.
//
// Usage:
//
//	import "github.com/seenimoa/incomeview/web"
//	t := template.Must(template.ParseFS(web.TemplatesFS(), "page.html"))
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed templates
var templates embed.FS

// TemplatesFS returns a filesystem rooted at the embedded templates/ directory.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		log.Fatalf("web.TemplatesFS: %v", err)
	}
	return sub
}
