package site

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content
var contentFS embed.FS

//go:embed static
var staticFS embed.FS

func embeddedContent() fs.FS {
	sub, err := fs.Sub(contentFS, "content")
	if err != nil {
		panic(err)
	}
	return sub
}

// StaticFS returns the built-in stylesheet, scripts and placeholder images,
// rooted so that "css/site.css" is served at /css/site.css.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
