// Package web carries the page templates and static assets of the UI.
package web

import "embed"

// Templates embeds the layout, partial and page templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds the stylesheet and script served under /static.
//
//go:embed static/**/*
var Static embed.FS
