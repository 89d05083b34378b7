package kalloc

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/physmem/memutils"
)

// MemoryLayout describes the physical address space a Pool manages
type MemoryLayout struct {
	// KernelEnd is the first address past kernel code and data. No frame below it is ever
	// handed to the pool.
	KernelEnd uintptr
	// PhysTop is the physical memory ceiling. It must be aligned to FrameSize.
	PhysTop uintptr
}

// Validate verifies that the layout leaves room for at least one frame
func (l MemoryLayout) Validate() error {
	err := memutils.CheckAligned(l.PhysTop, FrameSize, "PhysTop")
	if err != nil {
		return err
	}

	if l.FirstFrame() >= Frame(l.PhysTop) {
		return errors.Newf("kernel end %#x leaves no whole frames below the physical memory ceiling %#x", l.KernelEnd, l.PhysTop)
	}

	return nil
}

// FirstFrame is the lowest frame that may be handed to the pool
func (l MemoryLayout) FirstFrame() Frame {
	return Frame(memutils.AlignUp(l.KernelEnd, FrameSize))
}

// FrameCount is the number of frames between FirstFrame and PhysTop
func (l MemoryLayout) FrameCount() int {
	return int((l.PhysTop - uintptr(l.FirstFrame())) >> FrameShift)
}

// TableSize is the number of entries in the reference table: one per frame below PhysTop
func (l MemoryLayout) TableSize() int {
	return int(l.PhysTop >> FrameShift)
}

// CheckFrame returns an error marked with ErrInvalidFrame if frame is misaligned, lies below
// KernelEnd, or lies at or above PhysTop
func (l MemoryLayout) CheckFrame(frame Frame) error {
	err := memutils.CheckAligned(uintptr(frame), FrameSize, "frame")
	if err == nil {
		err = memutils.CheckRange(uintptr(frame), l.KernelEnd, l.PhysTop, "frame")
	}
	if err != nil {
		return errors.Mark(err, ErrInvalidFrame)
	}

	return nil
}

func (l MemoryLayout) checkRange(start, end uintptr) error {
	if end < start {
		return errors.Newf("range end %#x is before range start %#x", end, start)
	}

	if memutils.AlignUp(start, FrameSize) < l.KernelEnd || end > l.PhysTop {
		return errors.Mark(
			errors.Newf("range [%#x, %#x) extends outside of [%#x, %#x)", start, end, l.KernelEnd, l.PhysTop),
			ErrInvalidFrame,
		)
	}

	return nil
}
