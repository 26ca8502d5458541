package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.js>",
		Short: "Execute a script in the sandbox and print its console output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := newRunner().Run(cmd.Context(), string(source))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range res.Logs {
				fmt.Fprintf(out, "[%s] %s\n", l.Level, l.Text)
			}
			if res.Truncated {
				fmt.Fprintln(out, "(output truncated)")
			}
			if res.JSON != "" {
				fmt.Fprintf(out, "=> %s\n", res.JSON)
			}
			fmt.Fprintf(out, "(%s)\n", res.Duration)
			if res.Error != "" {
				return errors.New(res.Error)
			}
			return nil
		},
	}
}
