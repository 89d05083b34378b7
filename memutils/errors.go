package memutils

import "github.com/pkg/errors"

// MisalignedError is the error returned from CheckAligned if a value is not a multiple of the requested alignment
var MisalignedError error = errors.New("value is not aligned")

// OutOfRangeError is the error returned from CheckRange if a value falls outside of a half-open range
var OutOfRangeError error = errors.New("value is out of range")
