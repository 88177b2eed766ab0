// Package assets carries the static files embedded into the binary.
package assets

import (
	_ "embed"
)

// IndexHTML contains the single-page browser UI served at /.
//
//go:embed index.html
var IndexHTML []byte
