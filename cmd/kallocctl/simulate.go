package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/physmem/internal/workload"
)

var (
	simulateWorkers   int
	simulateOps       int
	simulateSeed      uint64
	simulateMaxClaims int
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVar(&simulateWorkers, "workers", 8, "Number of concurrent workers")
	cmd.Flags().IntVar(&simulateOps, "ops", 10000, "Operations performed by each worker")
	cmd.Flags().Uint64Var(&simulateSeed, "seed", 1, "Random seed; worker n uses seed+n")
	cmd.Flags().IntVar(&simulateMaxClaims, "max-claims", 0, "Claims a worker may hold before it must release one (default 64)")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a booted frame pool with concurrent copy-on-write traffic",
		Long: `The simulate command boots a frame pool, then runs workers that allocate
frames, share them, break shares by copying, and release them. Afterwards it checks
that every frame was returned and that no frame was ever handed to two workers.

Example:
  kallocctl simulate
  kallocctl simulate --workers 32 --ops 100000 --seed 42
  kallocctl simulate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout())
		},
	}
	return cmd
}

type simulateResult struct {
	Report workload.Report
	Stats  json.RawMessage
}

func runSimulate(ctx context.Context, out io.Writer) error {
	logger := newLogger()

	pool, err := bootPool(logger)
	if err != nil {
		return err
	}
	defer destroyPool(logger, pool)

	report, err := workload.Run(ctx, logger, pool, workload.Config{
		Workers:    simulateWorkers,
		Operations: simulateOps,
		Seed:       simulateSeed,
		MaxClaims:  simulateMaxClaims,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		err = printJSON(out, simulateResult{
			Report: report,
			Stats:  json.RawMessage(pool.BuildStatsString(true)),
		})
	} else {
		printReport(out, &report)
		printPoolSummary(out, pool)
	}
	if err != nil {
		return err
	}

	if err := pool.Validate(); err != nil {
		return errors.Wrap(err, "frame pool failed validation after the workload")
	}
	if len(report.Conflicts) > 0 {
		return errors.Newf("%d frames were handed to two workers at once", len(report.Conflicts))
	}
	if report.Corruptions > 0 {
		return errors.Newf("%d frames were overwritten by a worker that did not own them", report.Corruptions)
	}

	return nil
}

func printReport(out io.Writer, report *workload.Report) {
	fmt.Fprintf(out, "Workload:\n")
	fmt.Fprintf(out, "  Allocations: %d\n", report.Allocations)
	fmt.Fprintf(out, "  Out Of Frames: %d\n", report.OutOfFrames)
	fmt.Fprintf(out, "  Shares: %d\n", report.Shares)
	fmt.Fprintf(out, "  Copy Breaks: %d\n", report.CopyBreaks)
	fmt.Fprintf(out, "  Releases: %d\n", report.Releases)
	fmt.Fprintf(out, "  Corruptions: %d\n", report.Corruptions)
	for _, frame := range report.Conflicts {
		fmt.Fprintf(out, "  Conflict: %s\n", frame)
	}
	fmt.Fprintln(out)
}
