package kalloc

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/physmem/internal/utils"
)

// CreateOptions contains optional settings when creating a pool
type CreateOptions struct {
	// Flags indicates specific pool behaviors to activate or deactivate
	Flags CreateFlags

	// Backing is an optional source of memory for frame contents. If it is left nil, the pool
	// maps anonymous memory of its own. If it is provided, Bytes() must be at least
	// MemoryLayout.FrameCount() * FrameSize bytes long, and the pool takes ownership of it:
	// Release is called from Pool.Destroy.
	Backing Backing
}

// New creates a new Pool. The pool is in PhaseUninitialized and has no free frames until
// InitPhaseOne is called.
//
// logger - The logger lifecycle events and unreleased frames are reported to
//
// layout - The physical address space the pool manages
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, layout MemoryLayout, options CreateOptions) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	err := layout.Validate()
	if err != nil {
		return nil, err
	}

	arenaSize := layout.FrameCount() * int(FrameSize)
	backing := options.Backing
	if backing == nil {
		backing, err = newAnonymousBacking(arenaSize)
		if err != nil {
			return nil, err
		}
	}

	arena := backing.Bytes()
	if len(arena) < arenaSize {
		releaseErr := backing.Release()
		if releaseErr != nil {
			logger.Error("error attempting to release frame backing after creation failure", slog.Any("error", releaseErr))
		}
		return nil, errors.Newf("backing memory is %d bytes, but the layout requires %d bytes for %d frames", len(arena), arenaSize, layout.FrameCount())
	}

	pool := &Pool{
		logger:      logger,
		layout:      layout,
		createFlags: options.Flags,
		mutex:       utils.OptionalMutex{UseMutex: false},
		backing:     backing,
		arena:       arena[:arenaSize:arenaSize],
		firstFrame:  layout.FirstFrame(),
		slots:       make([]frameSlot, layout.TableSize()),
		freeHead:    noFrameIndex,
	}

	for i := range pool.slots {
		pool.slots[i].next = noFrameIndex
	}

	logger.Debug("Pool::New",
		slog.String("KernelEnd", Frame(layout.KernelEnd).String()),
		slog.String("PhysTop", Frame(layout.PhysTop).String()),
		slog.Int("FrameCount", layout.FrameCount()),
		slog.String("Flags", options.Flags.String()),
	)

	return pool, nil
}
