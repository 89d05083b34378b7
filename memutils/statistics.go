package memutils

import "math"

// Statistics summarizes the frames held by one or more frame pools
type Statistics struct {
	// FrameCount is the number of frames that have ever been handed to the pool
	FrameCount int
	// FreeFrameCount is the number of frames currently on the free list
	FreeFrameCount int
	// LiveFrameCount is the number of frames currently owned by at least one caller
	LiveFrameCount int
	// ReferenceCount is the sum of reference counts across all live frames
	ReferenceCount int
}

func (s *Statistics) Clear() {
	s.FrameCount = 0
	s.FreeFrameCount = 0
	s.LiveFrameCount = 0
	s.ReferenceCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.FrameCount += other.FrameCount
	s.FreeFrameCount += other.FreeFrameCount
	s.LiveFrameCount += other.LiveFrameCount
	s.ReferenceCount += other.ReferenceCount
}

type DetailedStatistics struct {
	Statistics
	// SharedFrameCount is the number of live frames with a reference count above 1
	SharedFrameCount int
	RefCountMin      int
	RefCountMax      int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.SharedFrameCount = 0
	s.RefCountMin = math.MaxInt
	s.RefCountMax = 0
}

func (s *DetailedStatistics) AddFreeFrame() {
	s.FrameCount++
	s.FreeFrameCount++
}

func (s *DetailedStatistics) AddLiveFrame(refCount int) {
	s.FrameCount++
	s.LiveFrameCount++
	s.ReferenceCount += refCount

	if refCount > 1 {
		s.SharedFrameCount++
	}

	if refCount < s.RefCountMin {
		s.RefCountMin = refCount
	}

	if refCount > s.RefCountMax {
		s.RefCountMax = refCount
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.SharedFrameCount += other.SharedFrameCount

	if other.RefCountMin < s.RefCountMin {
		s.RefCountMin = other.RefCountMin
	}

	if other.RefCountMax > s.RefCountMax {
		s.RefCountMax = other.RefCountMax
	}
}
