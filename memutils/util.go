package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~uint32 | ~uint64 | ~uintptr
}

// CheckAligned returns an error wrapping MisalignedError if value is not a multiple of alignment.
// alignment must be a power of two.
func CheckAligned[T Number](value T, alignment T, name string) error {
	if value&(alignment-1) != 0 {
		return cerrors.Wrapf(MisalignedError, "%s is %#x, alignment is %#x", name, value, alignment)
	}
	return nil
}

// CheckRange returns an error wrapping OutOfRangeError if value does not lie in [low, high)
func CheckRange[T Number](value, low, high T, name string) error {
	if value < low || value >= high {
		return cerrors.Wrapf(OutOfRangeError, "%s is %#x, must be in [%#x, %#x)", name, value, low, high)
	}
	return nil
}

func AlignUp[T Number](value T, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}

func AlignDown[T Number](value T, alignment T) T {
	return value &^ (alignment - 1)
}

// Fill overwrites every byte of data with pattern
func Fill(data []byte, pattern byte) {
	if len(data) == 0 {
		return
	}
	data[0] = pattern
	for filled := 1; filled < len(data); filled *= 2 {
		copy(data[filled:], data[:filled])
	}
}

// IsFilled returns true if every byte of data is equal to pattern
func IsFilled(data []byte, pattern byte) bool {
	for _, b := range data {
		if b != pattern {
			return false
		}
	}
	return true
}
