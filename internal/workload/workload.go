// Package workload drives a frame pool the way address-space code does: many goroutines
// allocating frames, sharing them copy-on-write, breaking shares by copying, and releasing
// claims. It is used to exercise pools under contention and to check that no frame is ever
// owned by two unrelated goroutines at once.
package workload

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/physmem/kalloc"
	"github.com/vkngwrapper/physmem/memutils"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// FramePool is the subset of *kalloc.Pool a workload needs
type FramePool interface {
	Allocate() (kalloc.Frame, error)
	Release(frame kalloc.Frame)
	IncrementRefCount(frame kalloc.Frame) error
	DecrementRefCount(frame kalloc.Frame) error
	Bytes(frame kalloc.Frame) ([]byte, error)
}

const defaultMaxClaims = 64

// Config controls the shape of a workload
type Config struct {
	// Workers is the number of goroutines to run. It must be at least 1.
	Workers int
	// Operations is the number of steps each worker performs before releasing everything it holds
	Operations int
	// Seed seeds each worker's random source. Worker n uses Seed+n.
	Seed uint64
	// MaxClaims is the number of claims a worker may hold before it is forced to release one.
	// 0 means 64.
	MaxClaims int
}

// Report summarizes what a workload did
type Report struct {
	Allocations int
	OutOfFrames int
	Shares      int
	CopyBreaks  int
	Releases    int
	// Conflicts lists frames that were handed to one worker while another still owned them
	Conflicts []kalloc.Frame
	// Corruptions counts frames whose contents were changed by someone other than their owner
	Corruptions int
}

func (r *Report) add(other *Report) {
	r.Allocations += other.Allocations
	r.OutOfFrames += other.OutOfFrames
	r.Shares += other.Shares
	r.CopyBreaks += other.CopyBreaks
	r.Releases += other.Releases
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
	r.Corruptions += other.Corruptions
}

// ownership records which worker owns each live frame, across all workers
type ownership struct {
	mutex  sync.Mutex
	owners *swiss.Map[kalloc.Frame, int]
}

// claim registers worker as the owner of frame and returns false if another worker already was
func (o *ownership) claim(frame kalloc.Frame, worker int) bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	previous, owned := o.owners.Get(frame)
	o.owners.Put(frame, worker)
	return !owned || previous == worker
}

func (o *ownership) drop(frame kalloc.Frame) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.owners.Delete(frame)
}

// Run executes the workload against pool and waits for every worker to finish. If ctx is
// cancelled, workers release everything they hold and Run returns the partial report along
// with ctx's error.
func Run(ctx context.Context, logger *slog.Logger, pool FramePool, config Config) (Report, error) {
	if config.Workers < 1 {
		return Report{}, errors.Newf("workload requires at least 1 worker, but %d were requested", config.Workers)
	}
	if config.Operations < 0 {
		return Report{}, errors.Newf("workload operation count %d is negative", config.Operations)
	}
	if config.MaxClaims < 0 {
		return Report{}, errors.Newf("workload claim limit %d is negative", config.MaxClaims)
	}
	if config.MaxClaims == 0 {
		config.MaxClaims = defaultMaxClaims
	}

	logger.Debug("workload::Run",
		slog.Int("workers", config.Workers),
		slog.Int("operations", config.Operations),
		slog.Uint64("seed", config.Seed),
	)

	owners := &ownership{owners: swiss.NewMap[kalloc.Frame, int](uint32(config.Workers * config.MaxClaims))}
	reports := make([]Report, config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			w := &worker{
				id:        id,
				pool:      pool,
				owners:    owners,
				rand:      rand.New(rand.NewSource(config.Seed + uint64(id))),
				pattern:   byte(id%250) + 2,
				claims:    make(map[kalloc.Frame]int),
				maxClaims: config.MaxClaims,
				report:    &reports[id],
			}
			w.run(ctx, config.Operations)
		}(i)
	}
	wg.Wait()

	var report Report
	for i := range reports {
		report.add(&reports[i])
	}
	slices.Sort(report.Conflicts)
	report.Conflicts = slices.Compact(report.Conflicts)

	logger.Debug("workload::Run complete",
		slog.Int("allocations", report.Allocations),
		slog.Int("releases", report.Releases),
		slog.Int("conflicts", len(report.Conflicts)),
	)

	return report, ctx.Err()
}

type worker struct {
	id        int
	pool      FramePool
	owners    *ownership
	rand      *rand.Rand
	pattern   byte
	maxClaims int
	report    *Report

	// held has one entry per claim, so a frame shared twice appears twice
	held   []kalloc.Frame
	claims map[kalloc.Frame]int
}

func (w *worker) run(ctx context.Context, operations int) {
	defer w.releaseAll()

	for step := 0; step < operations; step++ {
		if ctx.Err() != nil {
			return
		}

		roll := w.rand.Intn(100)
		switch {
		case len(w.held) >= w.maxClaims:
			w.release()
		case len(w.held) == 0 || roll < 40:
			w.allocate()
		case roll < 55:
			w.share()
		case roll < 70:
			w.copyBreak()
		default:
			w.release()
		}
	}
}

func (w *worker) allocate() {
	frame, err := w.pool.Allocate()
	if err != nil {
		w.report.OutOfFrames++
		return
	}
	w.report.Allocations++

	if !w.owners.claim(frame, w.id) {
		w.report.Conflicts = append(w.report.Conflicts, frame)
	}

	data, err := w.pool.Bytes(frame)
	if err == nil {
		memutils.Fill(data, w.pattern)
	}

	w.held = append(w.held, frame)
	w.claims[frame] = 1
}

func (w *worker) share() {
	frame := w.held[w.rand.Intn(len(w.held))]
	if w.pool.IncrementRefCount(frame) != nil {
		return
	}

	w.report.Shares++
	w.held = append(w.held, frame)
	w.claims[frame]++
}

// copyBreak mimics a write fault on a shared frame: the writer gets a private copy and gives up
// one reference to the original, which stays live for its other claims
func (w *worker) copyBreak() {
	index := w.rand.Intn(len(w.held))
	original := w.held[index]
	if w.claims[original] < 2 {
		w.share()
		return
	}

	source, err := w.pool.Bytes(original)
	if err != nil {
		return
	}
	if !memutils.IsFilled(source, w.pattern) {
		w.report.Corruptions++
	}

	frame, err := w.pool.Allocate()
	if err != nil {
		w.report.OutOfFrames++
		return
	}
	w.report.Allocations++

	if !w.owners.claim(frame, w.id) {
		w.report.Conflicts = append(w.report.Conflicts, frame)
	}

	dest, err := w.pool.Bytes(frame)
	if err == nil {
		copy(dest, source)
	}

	if w.pool.DecrementRefCount(original) != nil {
		w.owners.drop(frame)
		w.pool.Release(frame)
		return
	}

	w.report.CopyBreaks++
	w.claims[original]--
	w.held[index] = frame
	w.claims[frame] = 1
}

func (w *worker) release() {
	if len(w.held) == 0 {
		return
	}

	index := w.rand.Intn(len(w.held))
	w.releaseAt(index)
}

func (w *worker) releaseAt(index int) {
	frame := w.held[index]
	last := len(w.held) - 1
	w.held[index] = w.held[last]
	w.held = w.held[:last]

	w.claims[frame]--
	if w.claims[frame] == 0 {
		delete(w.claims, frame)

		data, err := w.pool.Bytes(frame)
		if err == nil && !memutils.IsFilled(data, w.pattern) {
			w.report.Corruptions++
		}

		// Ownership must be dropped before the frame can be handed to anyone else
		w.owners.drop(frame)
	}

	w.pool.Release(frame)
	w.report.Releases++
}

func (w *worker) releaseAll() {
	for len(w.held) > 0 {
		w.releaseAt(len(w.held) - 1)
	}
}
