package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gardar/tallyocr/pkg/tally"
	"github.com/gardar/tallyocr/pkg/textract"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var tablePath string
	var fuzzy bool
	var threshold float64

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match and reconcile a persisted table without calling any provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(tablePath)
			if err != nil {
				return fmt.Errorf("read table: %w", err)
			}

			cands := tally.DefaultCandidates()
			if *ctx.configFlag != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if cands, err = cfg.candidates(); err != nil {
					return err
				}
			}
			var strategy tally.Strategy = tally.ExactVariantMatch{}
			if fuzzy {
				strategy = tally.FuzzyTokenMatch{Threshold: threshold}
			}

			r, err := reconcileTable(string(data), tally.NewMatcher(cands, strategy))
			printReconciliation(cmd, r)
			return err
		},
	}
	cmd.Flags().StringVarP(&tablePath, "table", "t", "", "Path to a textract_table_cm.csv file")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Use fuzzy token matching instead of exact variants")
	cmd.Flags().Float64Var(&threshold, "threshold", tally.DefaultFuzzyThreshold, "Similarity threshold for fuzzy matching (0-100)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// errMismatch makes the command exit non-zero when counts do not reconcile
var errMismatch = errors.New("counts do not reconcile")

func reconcileTable(text string, m *tally.Matcher) (tally.Reconciliation, error) {
	var sections []tally.SanitizedText
	for _, s := range textract.SplitSections(text) {
		sections = append(sections, tally.Sanitized(s))
	}
	r := tally.Reconcile(m.MatchTables(sections))
	if !r.Match {
		return r, fmt.Errorf("%w: %s", errMismatch, r.Reason())
	}
	return r, nil
}

func printReconciliation(cmd *cobra.Command, r tally.Reconciliation) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(r.Counts)+2)
	for _, name := range sortedNames(r.Counts) {
		rows = append(rows, []string{name, fmt.Sprint(r.Counts[name])})
	}
	rows = append(rows, []string{"Sum", fmt.Sprint(r.Sum)})
	total := "-"
	if r.DeclaredTotal != nil {
		total = fmt.Sprint(*r.DeclaredTotal)
	}
	rows = append(rows, []string{tally.TotalKeyword, total})
	fmt.Fprintln(out, renderTable([]string{"Candidate", "Votes"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "Match: %s\n", yesNo(r.Match))
	if r.MergedTables() {
		fmt.Fprintf(out, "Merged tables: %v\n", r.ContributingTables)
	}
}
