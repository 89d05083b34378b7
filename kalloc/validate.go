package kalloc

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// Validate performs internal consistency checks on the free list and reference table. It walks
// every slot in the table, so it should generally only be run for diagnostic purposes.
func (p *Pool) Validate() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	visited := swiss.NewMap[FrameIndex, struct{}](uint32(len(p.slots)))
	listLength := 0

	for index := p.freeHead; index != noFrameIndex; index = p.slots[index].next {
		if int(index) >= len(p.slots) {
			return errors.Newf("the free list links to frame index %d, past the end of the reference table (%d entries)", index, len(p.slots))
		}

		if visited.Has(index) {
			return errors.Newf("frame %s appears on the free list more than once", index.Frame())
		}
		visited.Put(index, struct{}{})

		slot := &p.slots[index]
		if slot.flags&slotFree == 0 {
			return errors.Newf("frame %s is on the free list but is not marked free", index.Frame())
		}

		if slot.refCount != 0 {
			return errors.Newf("frame %s is on the free list with reference count %d", index.Frame(), slot.refCount)
		}

		listLength++
	}

	markedFree := 0
	for i := range p.slots {
		if p.slots[i].flags&slotFree != 0 {
			markedFree++
		}
	}

	if markedFree != listLength {
		return errors.Newf("%d frames are marked free, but the free list holds %d", markedFree, listLength)
	}

	if !p.legacyAccounting() && p.freeFrames+p.uncountedFrames != listLength {
		return errors.Newf("the free frame counter is %d with %d seeded frames uncounted, but the free list holds %d",
			p.freeFrames, p.uncountedFrames, listLength)
	}

	return nil
}
