//go:build !debug_mem_utils

package memutils

// DebugEnabled is true when memutils is built with the debug_mem_utils build tag
const DebugEnabled bool = false

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckFill verifies that every byte of data still holds the fill pattern written when the
// memory was freed, and panics if it does not.
// This method no-ops unless the debug_mem_utils build tag is present.
func DebugCheckFill(data []byte, pattern byte, name string) {
}
