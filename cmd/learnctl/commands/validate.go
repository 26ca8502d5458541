package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/content"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate paths, lessons and challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := contentFS()
			if err != nil {
				return err
			}
			cat, err := content.Load(fsys)
			if err != nil {
				return err
			}
			chCat, err := challenge.LoadCatalog(fsys)
			if err != nil {
				return err
			}
			missing := 0
			for _, p := range cat.Paths {
				for _, m := range p.Modules {
					if _, ok := cat.Lessons[m]; !ok {
						missing++
					}
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "paths:      %d\n", len(cat.Paths))
			fmt.Fprintf(out, "lessons:    %d (%d modules without a lesson)\n", len(cat.Lessons), missing)
			fmt.Fprintf(out, "challenges: %d in %d categories\n", chCat.Total(), len(chCat.Categories))
			return nil
		},
	}
}

func verifySolutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-solutions",
		Short: "Run every reference solution against its own tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := contentFS()
			if err != nil {
				return err
			}
			chCat, err := challenge.LoadCatalog(fsys)
			if err != nil {
				return err
			}
			if err := challenge.NewEvaluator(newRunner()).VerifySolutions(cmd.Context(), chCat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d solutions pass\n", chCat.Total())
			return nil
		},
	}
}
