package workload

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dolthub/swiss"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/physmem/kalloc"
	"github.com/vkngwrapper/physmem/memutils"
	"golang.org/x/exp/rand"
)

const testFrameCount = 64

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func readyPool(t *testing.T) *kalloc.Pool {
	layout := kalloc.MemoryLayout{
		KernelEnd: 0x100000,
		PhysTop:   0x100000 + testFrameCount*kalloc.FrameSize,
	}

	pool, err := kalloc.New(testLogger(), layout, kalloc.CreateOptions{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pool.Destroy())
	})

	split := layout.KernelEnd + 16*kalloc.FrameSize
	require.NoError(t, pool.InitPhaseOne(layout.KernelEnd, split))
	require.NoError(t, pool.InitPhaseTwo(split, layout.PhysTop))

	return pool
}

// requireAllFree checks that every frame is back on the free list and the counter has returned
// to where boot left it
func requireAllFree(t *testing.T, pool *kalloc.Pool) {
	t.Helper()

	var stats memutils.DetailedStatistics
	stats.Clear()
	pool.CalculateStatistics(&stats)
	require.Equal(t, testFrameCount, stats.FreeFrameCount)
	require.Zero(t, stats.LiveFrameCount)

	require.Equal(t, 0, pool.FreeFrameCount())
	require.NoError(t, pool.Validate())
}

func TestRun(t *testing.T) {
	pool := readyPool(t)

	report, err := Run(context.Background(), testLogger(), pool, Config{
		Workers:    8,
		Operations: 500,
		Seed:       1,
		MaxClaims:  12,
	})
	require.NoError(t, err)

	require.Empty(t, report.Conflicts)
	require.Zero(t, report.Corruptions)
	require.Greater(t, report.Allocations, 0)
	require.Greater(t, report.Shares, 0)
	require.Equal(t, report.Allocations+report.Shares-report.CopyBreaks, report.Releases)

	// Every claim was released, so every frame is back on the free list
	requireAllFree(t, pool)
}

func TestRunExhaustsPool(t *testing.T) {
	pool := readyPool(t)

	// More claims than frames forces allocation failures
	report, err := Run(context.Background(), testLogger(), pool, Config{
		Workers:    4,
		Operations: 400,
		Seed:       7,
		MaxClaims:  testFrameCount,
	})
	require.NoError(t, err)

	require.Empty(t, report.Conflicts)
	require.Zero(t, report.Corruptions)
	require.Greater(t, report.OutOfFrames, 0)
	requireAllFree(t, pool)
}

func TestRunCancelled(t *testing.T) {
	pool := readyPool(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, testLogger(), pool, Config{Workers: 2, Operations: 100})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, report.Allocations)
	requireAllFree(t, pool)
}

func TestRunInvalidConfig(t *testing.T) {
	pool := readyPool(t)

	_, err := Run(context.Background(), testLogger(), pool, Config{Workers: 0, Operations: 1})
	require.Error(t, err)

	_, err = Run(context.Background(), testLogger(), pool, Config{Workers: 1, Operations: -1})
	require.Error(t, err)

	report, err := Run(context.Background(), testLogger(), pool, Config{Workers: 1, Operations: 5, MaxClaims: -1})
	require.ErrorContains(t, err, "claim limit -1 is negative")
	require.Zero(t, report.Allocations)
	requireAllFree(t, pool)
}

func TestWorkerReleaseWithNothingHeld(t *testing.T) {
	pool := readyPool(t)

	w := &worker{
		pool:      pool,
		rand:      rand.New(rand.NewSource(1)),
		claims:    make(map[kalloc.Frame]int),
		maxClaims: 1,
		report:    &Report{},
	}
	w.release()
	require.Zero(t, w.report.Releases)
}

func TestOwnershipClaim(t *testing.T) {
	owners := &ownership{owners: swiss.NewMap[kalloc.Frame, int](4)}

	require.True(t, owners.claim(0x1000, 1))
	require.True(t, owners.claim(0x1000, 1))
	require.False(t, owners.claim(0x1000, 2))

	owners.drop(0x1000)
	require.True(t, owners.claim(0x1000, 3))
}
