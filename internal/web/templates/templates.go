// Package templates embeds the page templates and static assets.
package templates

import "embed"

//go:embed base.html pages partials static
var FS embed.FS
