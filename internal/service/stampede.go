package service

import "sync"

// stampedeTracker counts concurrent cache misses per key. A count above one
// means several requests missed the same location at the same time, which is
// the signal the stampede metric records.
type stampedeTracker struct {
	mu           sync.Mutex
	activeMisses map[string]int
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{
		activeMisses: make(map[string]int),
	}
}

// missStarted records a miss for key and returns the concurrent miss count.
// Callers must pair it with a deferred missResolved.
func (st *stampedeTracker) missStarted(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.activeMisses[key]++
	return st.activeMisses[key]
}

// missResolved records that a miss for key finished.
func (st *stampedeTracker) missResolved(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if count, ok := st.activeMisses[key]; ok && count > 0 {
		st.activeMisses[key]--
		if st.activeMisses[key] == 0 {
			delete(st.activeMisses, key)
		}
	}
}
