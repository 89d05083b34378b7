package utils

import (
	"sync"
)

// OptionalMutex is a mutex that only locks once UseMutex is set. It lets a structure run without
// locking while only a single execution context can reach it, then switch locking on before
// anything else can observe it.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

// Enable switches locking on. It must be called while no other goroutine can be holding or
// waiting on the mutex.
func (m *OptionalMutex) Enable() {
	m.UseMutex = true
}
