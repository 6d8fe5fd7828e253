package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <ballot box id>",
		Short: "Re-run secondary OCR for a quarantined ballot box and rewrite its review files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ctx.openResources(cmd.Context())
			if err != nil {
				return err
			}
			defer res.Close()

			fb, err := res.fallback(cmd.Context())
			if err != nil {
				return err
			}
			report, err := fb.Review(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s recognized %d words\n", report.Provider, report.Words)
			for _, name := range report.ReviewFiles {
				fmt.Fprintf(out, "wrote %s\n", name)
			}
			return nil
		},
	}
}
