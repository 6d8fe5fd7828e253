package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gardar/tallyocr/pkg/ballot"
	"github.com/gardar/tallyocr/pkg/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var input string
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every ballot box listed in the input files",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(input)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			res, err := ctx.openResources(signalCtx)
			if err != nil {
				return err
			}
			defer res.Close()

			proc, err := res.processor(signalCtx)
			if err != nil {
				return err
			}
			batch := pipeline.NewBatch(proc, res.outcomes, pipeline.BatchOptions{
				Workers: res.cfg.Workers,
				Force:   force,
			}, res.logger)

			summary, err := batch.Run(signalCtx, records)
			printSummary(cmd, summary)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Ballot box JSON file or directory of them")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess ballot boxes that already have an outcome")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func loadRecords(input string) ([]ballot.Record, error) {
	input = strings.TrimSpace(input)
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	if info.IsDir() {
		return ballot.LoadDir(input)
	}
	return ballot.LoadFile(input)
}

func printSummary(cmd *cobra.Command, s pipeline.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, s.String())
	if len(s.ByKind) == 0 {
		return
	}
	kinds := make([]string, 0, len(s.ByKind))
	for kind := range s.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	rows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, []string{kind, fmt.Sprint(s.ByKind[kind])})
	}
	fmt.Fprintln(out, renderTable([]string{"Error kind", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}
