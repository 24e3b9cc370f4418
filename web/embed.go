// Package web carries the back-office templates and static assets compiled into the binary.
package web

import "embed"

// Globs handed to template.ParseFS; layouts must parse before pages reference them.
const (
	LayoutGlob = "templates/layouts/*.html"
	PageGlob   = "templates/pages/*.html"
)

//go:embed templates/layouts/*.html templates/pages/*.html
var Templates embed.FS

//go:embed static/css
var Static embed.FS
