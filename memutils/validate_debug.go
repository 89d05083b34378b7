//go:build debug_mem_utils

package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

// DebugEnabled is true when memutils is built with the debug_mem_utils build tag
const DebugEnabled bool = true

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckFill verifies that every byte of data still holds the fill pattern written when the
// memory was freed, and panics if it does not. A mismatch means something wrote through a
// reference to memory after it was released.
// This method no-ops unless the debug_mem_utils build tag is present.
func DebugCheckFill(data []byte, pattern byte, name string) {
	for offset, b := range data {
		if b != pattern {
			panic(cerrors.AssertionFailedf("%s was modified after it was freed: byte %d is %#x, expected %#x", name, offset, b, pattern))
		}
	}
}
