package ninjadb

import (
	"hash/fnv"
	"sync"
)

// StripedLocks guards document files with a fixed set of RW mutexes.
// A key always hashes to the same stripe; unrelated keys usually do not
// contend.
type StripedLocks struct {
	stripes []sync.RWMutex
	count   uint32
}

// NewStripedLocks creates a striped lock set. Non-positive counts use 32.
func NewStripedLocks(stripeCount int) *StripedLocks {
	if stripeCount <= 0 {
		stripeCount = 32
	}
	return &StripedLocks{
		stripes: make([]sync.RWMutex, stripeCount),
		count:   uint32(stripeCount),
	}
}

// Lock acquires the exclusive lock for key and returns its release func.
func (sl *StripedLocks) Lock(key string) func() {
	m := &sl.stripes[sl.stripe(key)]
	m.Lock()
	return m.Unlock
}

// RLock acquires the shared lock for key and returns its release func.
func (sl *StripedLocks) RLock(key string) func() {
	m := &sl.stripes[sl.stripe(key)]
	m.RLock()
	return m.RUnlock
}

// FNV-1a
func (sl *StripedLocks) stripe(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % sl.count
}
