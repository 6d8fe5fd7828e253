package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gardar/tallyocr/pkg/outcome"
)

func newOutcomesCommand(ctx *commandContext) *cobra.Command {
	var states []string

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "List recorded ballot box outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]outcome.State, 0, len(states))
			for _, s := range states {
				state, err := outcome.ParseState(s)
				if err != nil {
					return err
				}
				filter = append(filter, state)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := outcome.Open(cfg.OutcomeDB)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), filter...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No outcomes recorded")
				return nil
			}
			fmt.Fprint(out, renderOutcomes(records))
			fmt.Fprintln(out)

			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "verified: %d, quarantined: %d\n", counts[outcome.Verified], counts[outcome.Quarantined])
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by state (verified, quarantined); repeatable")
	return cmd
}

func renderOutcomes(records []outcome.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		total := "-"
		if r.DeclaredTotal != nil {
			total = fmt.Sprint(*r.DeclaredTotal)
		}
		rows = append(rows, []string{
			r.ID,
			string(r.State),
			fmt.Sprint(r.Sum),
			total,
			fmt.Sprint(r.Tables),
			r.Reason,
			r.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"Ballot box", "State", "Sum", "Total", "Tables", "Reason", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}
