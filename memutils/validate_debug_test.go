//go:build debug_mem_utils

package memutils_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/physmem/memutils"
)

type validatable struct {
	err error
}

func (v validatable) Validate() error {
	return v.err
}

func TestDebugValidate(t *testing.T) {
	require.NotPanics(t, func() {
		memutils.DebugValidate(validatable{})
	})
	require.Panics(t, func() {
		memutils.DebugValidate(validatable{err: errors.New("broken")})
	})
}

func TestDebugCheckFill(t *testing.T) {
	data := make([]byte, 64)
	memutils.Fill(data, 0x01)

	require.NotPanics(t, func() {
		memutils.DebugCheckFill(data, 0x01, "frame")
	})

	data[63] = 0x02
	require.Panics(t, func() {
		memutils.DebugCheckFill(data, 0x01, "frame")
	})
}
