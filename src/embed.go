// Package src is the application's source tree: the authored content and the front end. It is embedded so
// a binary or serverless function can run without the directory on disk.
package src

import (
	"embed"
	"io/fs"
)

//go:embed content static
var files embed.FS

// FS returns the embedded tree rooted at src/ (content/ and static/ at the top).
func FS() fs.FS {
	return files
}
