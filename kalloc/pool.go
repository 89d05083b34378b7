package kalloc

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/physmem/internal/utils"
	"github.com/vkngwrapper/physmem/memutils"
)

type slotFlags uint8

const (
	// slotManaged is set once a frame has been released into the pool at least once
	slotManaged slotFlags = 1 << iota
	// slotFree is set while a frame is on the free list
	slotFree
)

// frameSlot is one entry in the reference table. Free frames are linked through next, so frame
// contents are never used to hold list pointers.
type frameSlot struct {
	refCount uint32
	next     FrameIndex
	flags    slotFlags
}

// Pool is a reference-counted physical frame allocator. It hands out FrameSize frames from a
// LIFO free list and tracks how many owners each live frame has, so that a frame shared between
// several owners (for copy-on-write) only returns to the free list when its last owner releases
// it.
//
// A Pool is brought up in two phases. InitPhaseOne seeds the free list while only one execution
// context exists and locking is off. InitPhaseTwo seeds the rest of memory, turns locking on,
// and resets the reference table. After that, every method is safe for concurrent use.
type Pool struct {
	logger      *slog.Logger
	layout      MemoryLayout
	createFlags CreateFlags

	mutex utils.OptionalMutex
	phase Phase

	backing    Backing
	arena      []byte
	firstFrame Frame

	slots      []frameSlot
	freeHead   FrameIndex
	freeFrames int
	// uncountedFrames is the number of seeded frames dropped from freeFrames when InitPhaseTwo
	// reset the counter
	uncountedFrames int
}

func (p *Pool) legacyAccounting() bool {
	return p.createFlags&PoolCreateLegacyAccounting != 0
}

func (p *Pool) countSeededFrames() bool {
	return p.createFlags&PoolCreateCountSeededFrames != 0
}

// frameBytes returns the contents of a frame that has already passed CheckFrame
func (p *Pool) frameBytes(frame Frame) []byte {
	offset := uintptr(frame) - uintptr(p.firstFrame)
	return p.arena[offset : offset+FrameSize : offset+FrameSize]
}

// Layout returns the physical address space this pool manages
func (p *Pool) Layout() MemoryLayout {
	return p.layout
}

// Phase returns the pool's current boot phase
func (p *Pool) Phase() Phase {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.phase
}

// InitPhaseOne seeds the free list with every whole frame in [start, end). It must be called
// exactly once, before any other goroutine can reach the pool. Locking stays disabled until
// InitPhaseTwo.
func (p *Pool) InitPhaseOne(start, end uintptr) error {
	p.logger.Debug("Pool::InitPhaseOne",
		slog.String("start", Frame(start).String()),
		slog.String("end", Frame(end).String()),
	)

	if p.backing == nil {
		return errors.Wrap(ErrNotInitialized, "attempted to initialize a pool that has been destroyed")
	}

	if p.phase != PhaseUninitialized {
		return errors.Wrapf(ErrInvalidPhase, "phase one requires %s, but the pool is in %s", PhaseUninitialized, p.phase)
	}

	err := p.layout.checkRange(start, end)
	if err != nil {
		return err
	}

	p.phase = PhaseSingleContext
	released := p.freeRange(start, end)
	memutils.DebugValidate(p)

	p.logger.Debug("Pool::InitPhaseOne complete", slog.Int("released", released))
	return nil
}

// InitPhaseTwo seeds the free list with every whole frame in [start, end), which must not
// overlap the phase one range, then enables locking and resets every reference count and the
// free frame counter to 0. From then on FreeFrameCount reports the net number of frames freed
// since boot, unless the pool was created with PoolCreateCountSeededFrames. It must be called
// exactly once, after InitPhaseOne and before any other goroutine can reach the pool.
//
// Frames allocated during phase one remain live, but their reference counts are reset to 0
// along with everything else. Releasing one of them later returns it to the free list.
func (p *Pool) InitPhaseTwo(start, end uintptr) error {
	p.logger.Debug("Pool::InitPhaseTwo",
		slog.String("start", Frame(start).String()),
		slog.String("end", Frame(end).String()),
	)

	if p.phase != PhaseSingleContext {
		return errors.Wrapf(ErrInvalidPhase, "phase two requires %s, but the pool is in %s", PhaseSingleContext, p.phase)
	}

	err := p.layout.checkRange(start, end)
	if err != nil {
		return err
	}

	released := p.freeRange(start, end)

	if p.createFlags&PoolCreateExternallySynchronized == 0 {
		p.mutex.Enable()
	}

	zeroedLive, freeFrames := p.resetReferenceTable()
	memutils.DebugValidate(p)

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "Pool::InitPhaseTwo complete",
		slog.Int("released", released),
		slog.Int("zeroedLiveFrames", zeroedLive),
		slog.Int("freeFrames", freeFrames),
		slog.Bool("locking", p.mutex.UseMutex),
	)
	return nil
}

// resetReferenceTable zeroes every reference count and the free frame counter, then moves the
// pool into PhaseMultiContext. It returns the number of live frames whose counts were zeroed and
// the counter's new value.
func (p *Pool) resetReferenceTable() (int, int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	zeroedLive := 0
	for i := range p.slots {
		slot := &p.slots[i]
		if slot.refCount > 0 {
			zeroedLive++
		}
		slot.refCount = 0
	}

	if !p.countSeededFrames() {
		p.uncountedFrames = p.freeFrames
		p.freeFrames = 0
	}

	p.phase = PhaseMultiContext
	return zeroedLive, p.freeFrames
}

// freeRange seeds the free list from a range that has already passed checkRange. The caller
// validates the pool once seeding is done.
func (p *Pool) freeRange(start, end uintptr) int {
	released := 0
	for addr := memutils.AlignUp(start, FrameSize); addr+FrameSize <= end; addr += FrameSize {
		p.release(Frame(addr))
		released++
	}

	return released
}

// Allocate removes a frame from the free list, sets its reference count to 1, and returns it.
// If the free list is empty, it returns ErrOutOfFrames.
func (p *Pool) Allocate() (Frame, error) {
	frame, err := p.allocate()
	if err != nil {
		return 0, err
	}

	memutils.DebugCheckFill(p.frameBytes(frame), FillPattern, "frame "+frame.String())
	memutils.DebugValidate(p)
	return frame, nil
}

func (p *Pool) allocate() (Frame, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.phase == PhaseUninitialized {
		return 0, ErrNotInitialized
	}

	index := p.freeHead
	if index == noFrameIndex {
		if p.legacyAccounting() {
			p.freeFrames--
		}
		return 0, ErrOutOfFrames
	}

	slot := &p.slots[index]
	p.freeHead = slot.next
	slot.next = noFrameIndex
	slot.flags &^= slotFree
	slot.refCount = 1
	p.freeFrames--

	return index.Frame(), nil
}

// Release drops one owner's claim on a frame. If other owners remain, the reference count is
// decremented and the frame is left untouched. Otherwise the frame is filled with FillPattern
// and pushed onto the free list.
//
// Release panics if the frame is misaligned, lies outside of the managed range, or is already
// on the free list. Any of these mean memory is already corrupt.
func (p *Pool) Release(frame Frame) {
	err := p.layout.CheckFrame(frame)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "attempted to release an invalid frame"))
	}

	p.release(frame)
	memutils.DebugValidate(p)
}

func (p *Pool) release(frame Frame) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.phase == PhaseUninitialized {
		panic(errors.AssertionFailedf("frame %s was released before the pool was initialized", frame))
	}

	index := frame.Index()
	slot := &p.slots[index]
	if slot.flags&slotFree != 0 {
		panic(errors.AssertionFailedf("frame %s was released while already on the free list", frame))
	}

	if slot.refCount > 1 {
		slot.refCount--
		return
	}

	// The fill must complete before the frame is visible on the free list
	slot.refCount = 0
	memutils.Fill(p.frameBytes(frame), FillPattern)

	slot.next = p.freeHead
	slot.flags |= slotManaged | slotFree
	p.freeHead = index
	p.freeFrames++
}

// FreeFrameCount returns the free frame counter. After InitPhaseTwo this is the net number of
// frames released since boot, and may be negative. Pools created with
// PoolCreateCountSeededFrames count every frame on the free list instead.
func (p *Pool) FreeFrameCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.freeFrames
}

// Bytes returns the contents of a live frame. The caller must hold a reference to the frame for
// as long as it uses the returned slice.
func (p *Pool) Bytes(frame Frame) ([]byte, error) {
	err := p.layout.CheckFrame(frame)
	if err != nil {
		return nil, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.arena == nil {
		return nil, ErrNotInitialized
	}

	if p.slots[frame.Index()].flags&slotFree != 0 {
		return nil, errors.Wrapf(ErrFrameFree, "attempted to access the contents of frame %s", frame)
	}

	return p.frameBytes(frame), nil
}

// Destroy releases the pool's backing memory. Frames that are still live are logged.
func (p *Pool) Destroy() error {
	p.logger.Debug("Pool::Destroy")

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.backing == nil {
		return errors.New("attempted to destroy a pool that has already been destroyed")
	}

	for i := range p.slots {
		slot := &p.slots[i]
		if slot.flags&slotManaged != 0 && slot.flags&slotFree == 0 {
			p.logUnreleasedFrame(FrameIndex(i).Frame(), slot.refCount)
		}
	}

	err := p.backing.Release()
	p.backing = nil
	p.arena = nil
	p.phase = PhaseUninitialized
	p.freeHead = noFrameIndex
	p.freeFrames = 0
	p.uncountedFrames = 0

	return err
}

func (p *Pool) logUnreleasedFrame(frame Frame, refCount uint32) {
	p.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED FRAME] frame still live at destruction",
		slog.String("frame", frame.String()),
		slog.Uint64("refCount", uint64(refCount)),
	)
}
