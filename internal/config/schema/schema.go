// Package schema embeds the CUE definitions manifests are validated against.
package schema

import _ "embed"

//go:embed schema.cue
var SchemaCUE string
