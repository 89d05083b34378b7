package kalloc

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/physmem/memutils"
)

// CalculateStatistics sums this pool's frame statistics into the statistics currently present
// in the provided memutils.DetailedStatistics object.
func (p *Pool) CalculateStatistics(stats *memutils.DetailedStatistics) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for i := range p.slots {
		slot := &p.slots[i]
		if slot.flags&slotFree != 0 {
			stats.AddFreeFrame()
		} else if slot.flags&slotManaged != 0 {
			stats.AddLiveFrame(int(slot.refCount))
		}
	}
}

type sharedFrame struct {
	frame    Frame
	refCount uint32
}

func (p *Pool) sharedFrames() []sharedFrame {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var shared []sharedFrame
	for i := range p.slots {
		slot := &p.slots[i]
		if slot.flags&slotFree == 0 && slot.refCount > 1 {
			shared = append(shared, sharedFrame{frame: FrameIndex(i).Frame(), refCount: slot.refCount})
		}
	}

	return shared
}

// BuildStatsString returns a JSON document describing the pool. When detailed is true, every
// frame with more than one owner is listed along with its reference count.
func (p *Pool) BuildStatsString(detailed bool) string {
	var stats memutils.DetailedStatistics
	stats.Clear()
	p.CalculateStatistics(&stats)

	writer := jwriter.NewWriter()
	obj := writer.Object()

	obj.Name("Phase").String(p.Phase().String())
	obj.Name("FrameSize").Int(int(FrameSize))
	obj.Name("FreeFrameCount").Int(p.FreeFrameCount())

	total := obj.Name("Total").Object()
	total.Name("Frames").Int(stats.FrameCount)
	total.Name("FreeFrames").Int(stats.FreeFrameCount)
	total.Name("LiveFrames").Int(stats.LiveFrameCount)
	total.Name("SharedFrames").Int(stats.SharedFrameCount)
	total.Name("References").Int(stats.ReferenceCount)

	refCountMin := stats.RefCountMin
	if refCountMin == math.MaxInt {
		refCountMin = 0
	}
	total.Name("RefCountMin").Int(refCountMin)
	total.Name("RefCountMax").Int(stats.RefCountMax)
	total.End()

	if detailed {
		sharedArray := obj.Name("SharedFrames").Array()
		for _, shared := range p.sharedFrames() {
			sharedObj := sharedArray.Object()
			sharedObj.Name("Frame").String(shared.frame.String())
			sharedObj.Name("RefCount").Int(int(shared.refCount))
			sharedObj.End()
		}
		sharedArray.End()
	}

	obj.End()

	return string(writer.Bytes())
}
