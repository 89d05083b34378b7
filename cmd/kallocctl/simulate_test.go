package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulateCommand(t *testing.T) {
	resetFlags(t)

	var out bytes.Buffer
	require.NoError(t, runSimulate(context.Background(), &out))

	output := out.String()
	require.Contains(t, output, "Workload:")
	require.Contains(t, output, "Corruptions: 0")
	require.NotContains(t, output, "Conflict:")
	require.Contains(t, output, "Free Frames: 4096")
	require.Contains(t, output, "Free Frame Counter: 0")
	require.Contains(t, output, "Live Frames: 0")
}

func TestSimulateCommandJSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	simulateWorkers = 8
	simulateSeed = 99

	var out bytes.Buffer
	require.NoError(t, runSimulate(context.Background(), &out))

	result := requireJSON(t, out.Bytes())

	report, ok := result["Report"].(map[string]interface{})
	require.True(t, ok)
	require.Nil(t, report["Conflicts"])
	require.EqualValues(t, 0, report["Corruptions"])
	require.Greater(t, report["Allocations"], float64(0))

	stats, ok := result["Stats"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 0, stats["FreeFrameCount"])
	total, ok := stats["Total"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 4096, total["FreeFrames"])
	require.Empty(t, stats["SharedFrames"])
}

func TestSimulateCommandSmallPool(t *testing.T) {
	resetFlags(t)
	physTop = 0x100000 + 32*0x1000
	simulateMaxClaims = 32

	var out bytes.Buffer
	require.NoError(t, runSimulate(context.Background(), &out))
	require.Contains(t, out.String(), "Free Frames: 32")
}

func TestSimulateCommandNegativeMaxClaims(t *testing.T) {
	resetFlags(t)
	simulateMaxClaims = -1

	var out bytes.Buffer
	require.ErrorContains(t, runSimulate(context.Background(), &out), "claim limit -1 is negative")
	require.Empty(t, out.String())
}

func TestSimulateCommandInvalidWorkers(t *testing.T) {
	resetFlags(t)
	simulateWorkers = 0

	var out bytes.Buffer
	require.Error(t, runSimulate(context.Background(), &out))
}

func TestSimulateCommandCancelled(t *testing.T) {
	resetFlags(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.ErrorIs(t, runSimulate(ctx, &out), context.Canceled)
}
