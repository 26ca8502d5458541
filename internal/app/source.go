package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"jsacademy/backend/internal/appdir"
	"jsacademy/backend/internal/config"
)

// SourceDir is the name of the source tree beside the executable.
const SourceDir = "src"

// SourceRoot is the name the entrypoint resolves inside the search path: each root is a source tree itself.
const SourceRoot = "."

// SearchPath returns the roots consulted for the source tree, in order: APP_ROOT when set, the src directory
// beside the running executable when it exists, then embedded (the copy compiled into the binary).
// Only a relative APP_ROOT depends on the working directory. An APP_ROOT that is missing or not a
// directory is an error rather than a silent fall through to the next root.
func SearchPath(cfg *config.Config, embedded fs.FS) (*appdir.SearchPath, error) {
	sp := appdir.NewSearchPath()
	if cfg != nil && cfg.AppRoot != "" {
		dir, err := filepath.Abs(cfg.AppRoot)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("app: APP_ROOT: %w", err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("app: APP_ROOT %s is not a directory", dir)
		}
		sp.Append(appdir.DirRoot("APP_ROOT", dir))
	}
	if anchor, err := appdir.ExecutableAnchor(); err == nil {
		if err := sp.AppendSibling(anchor, SourceDir); err != nil {
			return nil, err
		}
	}
	if embedded != nil {
		sp.Append(appdir.FSRoot("embedded", embedded))
	}
	return sp, nil
}
