// Package commands is the learnctl CLI: content validation and local sandbox runs for authors.
package commands

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jsacademy/backend/internal/app"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/sandbox"
	"jsacademy/backend/src"
)

var (
	rootDir  string
	timeout  time.Duration
	logLevel string
)

// Execute runs the learnctl root command.
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "learnctl:", err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "learnctl",
		Short:         "Authoring tools for jsacademy content",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Configure(logLevel, "text")
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", "", "source tree with content/ (default: the embedded copy)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", sandbox.DefaultTimeout, "per-execution sandbox limit")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(validateCmd(), verifySolutionsCmd(), runCmd())
	return root
}

// contentFS returns content/ of --root, or of the embedded source tree.
func contentFS() (fs.FS, error) {
	var base fs.FS = src.FS()
	if rootDir != "" {
		fi, err := os.Stat(rootDir)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", rootDir)
		}
		base = os.DirFS(rootDir)
	}
	return fs.Sub(base, app.ContentDir)
}

func newRunner() *sandbox.Runner {
	return sandbox.New(sandbox.WithTimeout(timeout))
}
