package kalloc

import "github.com/vkngwrapper/core/v2/common"

// CreateFlags indicate specific pool behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// PoolCreateExternallySynchronized leaves the pool lock disabled after InitPhaseTwo. The
	// consumer must guarantee the pool is used from only one goroutine at a time.
	PoolCreateExternallySynchronized CreateFlags = 1 << iota
	// PoolCreateLegacyAccounting reproduces the free-frame counter of the classic xv6 CoW
	// allocator, where a failed Allocate still decrements the counter. FreeFrameCount may go
	// further negative with each failure.
	PoolCreateLegacyAccounting
	// PoolCreateCountSeededFrames keeps the frames seeded during boot in the free frame counter
	// when InitPhaseTwo runs, so FreeFrameCount always equals the length of the free list.
	// Without it the counter restarts from 0 at the end of boot.
	PoolCreateCountSeededFrames
)

func init() {
	PoolCreateExternallySynchronized.Register("PoolCreateExternallySynchronized")
	PoolCreateLegacyAccounting.Register("PoolCreateLegacyAccounting")
	PoolCreateCountSeededFrames.Register("PoolCreateCountSeededFrames")
}
