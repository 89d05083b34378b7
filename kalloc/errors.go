package kalloc

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfFrames is returned from Allocate when the free list is empty
	ErrOutOfFrames = errors.New("no free frames available")
	// ErrNotInitialized is returned when the pool is used before InitPhaseOne or after Destroy
	ErrNotInitialized = errors.New("frame pool is not initialized")
	// ErrInvalidPhase is returned when a boot phase is run out of order
	ErrInvalidPhase = errors.New("frame pool is in the wrong phase")
	// ErrInvalidFrame marks errors for addresses that are misaligned or outside the managed range
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrFrameFree is returned when an operation that requires a live frame is given a free one
	ErrFrameFree = errors.New("frame is on the free list")
	// ErrRefCountUnderflow is returned when decrementing a reference count that is already 0
	ErrRefCountUnderflow = errors.New("reference count underflow")
	// ErrRefCountOverflow is returned when incrementing a reference count past its maximum
	ErrRefCountOverflow = errors.New("reference count overflow")
)
