package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/physmem/kalloc"
)

var (
	// Global flags
	verbose bool
	jsonOut bool

	// Memory layout flags
	kernelEnd        uint64
	physTop          uint64
	phaseOneEnd      uint64
	legacyAccounting bool
	countSeeded      bool
)

var rootCmd = &cobra.Command{
	Use:   "kallocctl",
	Short: "Boot and exercise a reference-counted physical frame pool",
	Long: `kallocctl brings up a physical frame pool over a simulated memory layout,
seeding it in two boot phases, and reports on its free list and reference table.
It can also drive the pool with concurrent allocate, share, and release traffic.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pool lifecycle events to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")

	rootCmd.PersistentFlags().Uint64Var(&kernelEnd, "kernel-end", 0x100000, "First address past the kernel image")
	rootCmd.PersistentFlags().Uint64Var(&physTop, "phys-top", 0x1100000, "Top of physical memory")
	rootCmd.PersistentFlags().
		Uint64Var(&phaseOneEnd, "phase-one-end", 0, "Boundary between the two boot ranges (default: a quarter of managed memory)")
	rootCmd.PersistentFlags().
		BoolVar(&legacyAccounting, "legacy-accounting", false, "Decrement the free frame counter on failed allocations too")
	rootCmd.PersistentFlags().
		BoolVar(&countSeeded, "count-seeded-frames", false, "Keep boot-seeded frames in the free frame counter")
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// bootPool creates a pool from the layout flags and runs both boot phases
func bootPool(logger *slog.Logger) (*kalloc.Pool, error) {
	layout := kalloc.MemoryLayout{
		KernelEnd: uintptr(kernelEnd),
		PhysTop:   uintptr(physTop),
	}

	var options kalloc.CreateOptions
	if legacyAccounting {
		options.Flags |= kalloc.PoolCreateLegacyAccounting
	}
	if countSeeded {
		options.Flags |= kalloc.PoolCreateCountSeededFrames
	}

	pool, err := kalloc.New(logger, layout, options)
	if err != nil {
		return nil, err
	}

	split := uintptr(phaseOneEnd)
	if split == 0 {
		split = uintptr(layout.FirstFrame()) + uintptr(layout.FrameCount()/4)*kalloc.FrameSize
	}

	err = pool.InitPhaseOne(layout.KernelEnd, split)
	if err == nil {
		err = pool.InitPhaseTwo(split, layout.PhysTop)
	}
	if err != nil {
		destroyPool(logger, pool)
		return nil, errors.Wrap(err, "failed to boot frame pool")
	}

	return pool, nil
}

func destroyPool(logger *slog.Logger, pool *kalloc.Pool) {
	if err := pool.Destroy(); err != nil {
		logger.Error("failed to destroy frame pool", slog.Any("error", err))
	}
}

// printJSON outputs data as JSON
func printJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
