package kalloc

import (
	"math"

	"github.com/cockroachdb/errors"
)

// RefCount returns the number of owners of the frame. Free frames have a count of 0.
func (p *Pool) RefCount(frame Frame) (uint32, error) {
	err := p.layout.CheckFrame(frame)
	if err != nil {
		return 0, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.phase == PhaseUninitialized {
		return 0, ErrNotInitialized
	}

	return p.slots[frame.Index()].refCount, nil
}

// liveSlot returns the reference table entry for a frame that the pool has handed out. The
// caller must hold the lock.
func (p *Pool) liveSlot(frame Frame, action string) (*frameSlot, error) {
	if p.phase == PhaseUninitialized {
		return nil, errors.Wrapf(ErrNotInitialized, "attempted to %s frame %s", action, frame)
	}

	slot := &p.slots[frame.Index()]
	if slot.flags&slotManaged == 0 {
		return nil, errors.Wrapf(ErrInvalidFrame, "attempted to %s frame %s, which was never given to the pool", action, frame)
	}

	if slot.flags&slotFree != 0 {
		return nil, errors.Wrapf(ErrFrameFree, "attempted to %s frame %s", action, frame)
	}

	return slot, nil
}

// IncrementRefCount records an additional owner of a live frame, such as a second page table
// mapping it read-only. It never touches the free list.
func (p *Pool) IncrementRefCount(frame Frame) error {
	err := p.layout.CheckFrame(frame)
	if err != nil {
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	slot, err := p.liveSlot(frame, "add a reference to")
	if err != nil {
		return err
	}

	if slot.refCount == math.MaxUint32 {
		return errors.Wrapf(ErrRefCountOverflow, "frame %s already has %d references", frame, slot.refCount)
	}

	slot.refCount++
	return nil
}

// DecrementRefCount removes one owner of a live frame without reclaiming it. Unlike Release,
// the frame is never pushed onto the free list, even if its count reaches 0; it should only be
// used when another owner is known to still hold the frame.
func (p *Pool) DecrementRefCount(frame Frame) error {
	err := p.layout.CheckFrame(frame)
	if err != nil {
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	slot, err := p.liveSlot(frame, "remove a reference from")
	if err != nil {
		return err
	}

	if slot.refCount == 0 {
		return errors.Wrapf(ErrRefCountUnderflow, "frame %s has no references to remove", frame)
	}

	slot.refCount--
	return nil
}
