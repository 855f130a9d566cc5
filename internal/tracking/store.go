package tracking

import "sync"

// TrackStore keeps the ordered path points of every device. Each track is
// append-only and non-decreasing in time.
type TrackStore struct {
	mu     sync.RWMutex
	tracks map[string]*track
}

type track struct {
	points []PathPoint
	// index of the first point of the current recording session
	sessionStart int
}

func NewTrackStore() *TrackStore {
	return &TrackStore{tracks: map[string]*track{}}
}

// Append adds p to the device's track. A point older than the last stored
// one is dropped and Append reports false.
func (s *TrackStore) Append(deviceID string, p PathPoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.trackLocked(deviceID)
	if n := len(t.points); n > 0 && p.Timestamp.Before(t.points[n-1].Timestamp) {
		return false
	}
	t.points = append(t.points, p)
	return true
}

// ReadAll returns a copy of the device's whole track.
func (s *TrackStore) ReadAll(deviceID string) []PathPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tracks[deviceID]
	if !ok {
		return []PathPoint{}
	}
	return append([]PathPoint(nil), t.points...)
}

// LatestTwo returns the two most recent points in time order.
func (s *TrackStore) LatestTwo(deviceID string) (PathPoint, PathPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tracks[deviceID]
	if !ok || len(t.points) < 2 {
		return PathPoint{}, PathPoint{}, false
	}
	n := len(t.points)
	return t.points[n-2], t.points[n-1], true
}

// BeginSession marks the end of the current track; Session returns only
// points appended after the mark.
func (s *TrackStore) BeginSession(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.trackLocked(deviceID)
	t.sessionStart = len(t.points)
}

func (s *TrackStore) Session(deviceID string) []PathPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tracks[deviceID]
	if !ok {
		return []PathPoint{}
	}
	return append([]PathPoint(nil), t.points[t.sessionStart:]...)
}

func (s *TrackStore) Clear(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracks, deviceID)
}

func (s *TrackStore) trackLocked(deviceID string) *track {
	t, ok := s.tracks[deviceID]
	if !ok {
		t = &track{}
		s.tracks[deviceID] = t
	}
	return t
}
