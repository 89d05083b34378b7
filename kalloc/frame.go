package kalloc

import "fmt"

const (
	// FrameShift is the base-2 exponent of FrameSize
	FrameShift = 12
	// FrameSize is the size in bytes of a single physical frame
	FrameSize uintptr = 1 << FrameShift
	// FillPattern is written over every byte of a frame when it returns to the free list, so that
	// reads through a dangling reference see obvious junk rather than stale data
	FillPattern byte = 0x01
)

// Frame is the physical address of a FrameSize-aligned region of physical memory
type Frame uintptr

// FrameIndex is the position of a frame within the reference table: its address shifted right
// by FrameShift
type FrameIndex uint

// noFrameIndex terminates the free list
const noFrameIndex FrameIndex = ^FrameIndex(0)

func (f Frame) Index() FrameIndex {
	return FrameIndex(f >> FrameShift)
}

func (f Frame) String() string {
	return fmt.Sprintf("%#x", uintptr(f))
}

func (i FrameIndex) Frame() Frame {
	return Frame(uintptr(i) << FrameShift)
}
