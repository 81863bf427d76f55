// Package web embeds the html templates served by the account pages.
package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page; gin renders them by file name.
func Templates() *template.Template {
	return template.Must(
		template.New("").
			Funcs(template.FuncMap{"fmtTime": fmtTime}).
			ParseFS(files, "templates/*.html"),
	)
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2 Jan 2006 15:04")
}
