package main

import (
	_ "embed"
	"os"
	"path/filepath"
)

//go:embed assets/favicon.ico
var embeddedFavicon []byte

// faviconSource returns the bytes served for /favicon.ico. A favicon.ico
// sitting next to the running executable takes precedence, falling back to
// the icon compiled into the binary so the route still serves something
// when no sidecar file is present.
func faviconSource() func() []byte {
	return func() []byte {
		if exe, err := os.Executable(); err == nil {
			path := filepath.Join(filepath.Dir(exe), "favicon.ico")
			if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
				return data
			}
		}
		return embeddedFavicon
	}
}
