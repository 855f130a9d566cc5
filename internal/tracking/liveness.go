package tracking

import (
	"sort"
	"sync"
	"time"
)

// Liveness records when each device last reported. A device missing from
// it has never been seen or has already expired.
type Liveness struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time
}

func NewLiveness() *Liveness {
	return &Liveness{lastSeen: map[string]time.Time{}}
}

func (l *Liveness) Touch(deviceID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSeen[deviceID] = now
}

func (l *Liveness) LastSeen(deviceID string) (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.lastSeen[deviceID]
	return t, ok
}

// Expired lists devices last seen strictly before now-threshold, sorted.
func (l *Liveness) Expired(now time.Time, threshold time.Duration) []string {
	cutoff := now.Add(-threshold)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []string
	for id, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (l *Liveness) Forget(deviceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lastSeen, deviceID)
}

// ForgetIfStale removes the device only if it is still older than cutoff.
func (l *Liveness) ForgetIfStale(deviceID string, cutoff time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen, ok := l.lastSeen[deviceID]
	if !ok || !seen.Before(cutoff) {
		return false
	}
	delete(l.lastSeen, deviceID)
	return true
}
