package web

import "embed"

// DistFS contains the dashboard served by `acto serve`.
//
//go:embed all:dist
var DistFS embed.FS
