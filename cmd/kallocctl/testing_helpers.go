package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// resetFlags restores every global flag to its default
func resetFlags(t *testing.T) {
	t.Helper()

	verbose = false
	jsonOut = false
	kernelEnd = 0x100000
	physTop = 0x1100000
	phaseOneEnd = 0
	legacyAccounting = false
	countSeeded = false

	simulateWorkers = 4
	simulateOps = 500
	simulateSeed = 1
	simulateMaxClaims = 0

	t.Cleanup(func() {
		jsonOut = false
	})
}

// requireJSON checks that output is a JSON object and decodes it
func requireJSON(t *testing.T, output []byte) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result), "invalid JSON output: %s", output)
	return result
}
