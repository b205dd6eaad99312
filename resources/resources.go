// Package resources embeds the page catalogs and flows shipped with the harness.
package resources

import "embed"

// Files holds pages/*.yaml and flows/*.yaml, laid out for page.Loader and flow.Loader.
//
//go:embed pages/*.yaml flows/*.yaml
var Files embed.FS
