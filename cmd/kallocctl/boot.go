package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/physmem/kalloc"
	"github.com/vkngwrapper/physmem/memutils"
)

func init() {
	rootCmd.AddCommand(newBootCmd())
}

func newBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot a frame pool and show its statistics",
		Long: `The boot command seeds a frame pool in two phases, first over
[kernel-end, phase-one-end) with locking off, then over [phase-one-end, phys-top)
before enabling the lock, and prints the resulting pool statistics.

Example:
  kallocctl boot
  kallocctl boot --phys-top 0x2000000 --phase-one-end 0x400000
  kallocctl boot --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd.OutOrStdout())
		},
	}
	return cmd
}

type bootResult struct {
	KernelEnd      string
	PhysTop        string
	Phase          string
	FreeFrameCount int
	Stats          json.RawMessage
}

func runBoot(out io.Writer) error {
	logger := newLogger()

	pool, err := bootPool(logger)
	if err != nil {
		return err
	}
	defer destroyPool(logger, pool)

	if jsonOut {
		layout := pool.Layout()
		return printJSON(out, bootResult{
			KernelEnd:      kalloc.Frame(layout.KernelEnd).String(),
			PhysTop:        kalloc.Frame(layout.PhysTop).String(),
			Phase:          pool.Phase().String(),
			FreeFrameCount: pool.FreeFrameCount(),
			Stats:          json.RawMessage(pool.BuildStatsString(false)),
		})
	}

	printPoolSummary(out, pool)
	return nil
}

func printPoolSummary(out io.Writer, pool *kalloc.Pool) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	pool.CalculateStatistics(&stats)

	layout := pool.Layout()
	fmt.Fprintf(out, "Frame Pool: %s - %s\n", layout.FirstFrame(), kalloc.Frame(layout.PhysTop))
	fmt.Fprintf(out, "  Phase: %s\n", pool.Phase())
	fmt.Fprintf(out, "  Frames: %d\n", stats.FrameCount)
	fmt.Fprintf(out, "  Free Frames: %d\n", stats.FreeFrameCount)
	fmt.Fprintf(out, "  Free Frame Counter: %d\n", pool.FreeFrameCount())
	fmt.Fprintf(out, "  Live Frames: %d\n", stats.LiveFrameCount)
	fmt.Fprintf(out, "  Shared Frames: %d\n", stats.SharedFrameCount)
	fmt.Fprintf(out, "  References: %d\n", stats.ReferenceCount)
}
