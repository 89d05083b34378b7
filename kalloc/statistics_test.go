package kalloc

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/physmem/memutils"
)

func TestCalculateStatistics(t *testing.T) {
	pool := readyPool(t, CreateOptions{})

	var stats memutils.DetailedStatistics
	stats.Clear()
	pool.CalculateStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			FrameCount:     testFrameCount,
			FreeFrameCount: testFrameCount,
			LiveFrameCount: 0,
			ReferenceCount: 0,
		},
		SharedFrameCount: 0,
		RefCountMin:      math.MaxInt,
		RefCountMax:      0,
	}, stats)

	private, err := pool.Allocate()
	require.NoError(t, err)
	shared, err := pool.Allocate()
	require.NoError(t, err)
	require.NoError(t, pool.IncrementRefCount(shared))
	require.NoError(t, pool.IncrementRefCount(shared))

	stats.Clear()
	pool.CalculateStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			FrameCount:     testFrameCount,
			FreeFrameCount: testFrameCount - 2,
			LiveFrameCount: 2,
			ReferenceCount: 4,
		},
		SharedFrameCount: 1,
		RefCountMin:      1,
		RefCountMax:      3,
	}, stats)

	pool.Release(private)
	pool.Release(shared)
	pool.Release(shared)
	pool.Release(shared)
}

func TestBuildStatsString(t *testing.T) {
	pool := readyPool(t, CreateOptions{})

	private, err := pool.Allocate()
	require.NoError(t, err)
	shared, err := pool.Allocate()
	require.NoError(t, err)
	require.NoError(t, pool.IncrementRefCount(shared))
	require.NoError(t, pool.IncrementRefCount(shared))

	require.JSONEq(t, `{
		"Phase": "PhaseMultiContext",
		"FrameSize": 4096,
		"FreeFrameCount": -2,
		"Total": {
			"Frames": 32,
			"FreeFrames": 30,
			"LiveFrames": 2,
			"SharedFrames": 1,
			"References": 4,
			"RefCountMin": 1,
			"RefCountMax": 3
		}
	}`, pool.BuildStatsString(false))

	require.JSONEq(t, fmt.Sprintf(`{
		"Phase": "PhaseMultiContext",
		"FrameSize": 4096,
		"FreeFrameCount": -2,
		"Total": {
			"Frames": 32,
			"FreeFrames": 30,
			"LiveFrames": 2,
			"SharedFrames": 1,
			"References": 4,
			"RefCountMin": 1,
			"RefCountMax": 3
		},
		"SharedFrames": [
			{"Frame": %q, "RefCount": 3}
		]
	}`, shared.String()), pool.BuildStatsString(true))

	pool.Release(private)
	for i := 0; i < 3; i++ {
		pool.Release(shared)
	}

	require.JSONEq(t, `{
		"Phase": "PhaseMultiContext",
		"FrameSize": 4096,
		"FreeFrameCount": 0,
		"Total": {
			"Frames": 32,
			"FreeFrames": 32,
			"LiveFrames": 0,
			"SharedFrames": 0,
			"References": 0,
			"RefCountMin": 0,
			"RefCountMax": 0
		},
		"SharedFrames": []
	}`, pool.BuildStatsString(true))
}
