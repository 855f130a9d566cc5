package tracking

import (
	"sync"
	"time"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// StateRepository holds the recording state of each device. Implementations
// must be safe for concurrent use.
type StateRepository interface {
	Get(deviceID string) State
	Set(deviceID string, state State)
}

// MemoryStates is an in-process StateRepository.
type MemoryStates struct {
	mu        sync.RWMutex
	recording map[string]struct{}
}

func NewMemoryStates() *MemoryStates {
	return &MemoryStates{recording: map[string]struct{}{}}
}

func (m *MemoryStates) Get(deviceID string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.recording[deviceID]; ok {
		return Recording
	}
	return Idle
}

func (m *MemoryStates) Set(deviceID string, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == Recording {
		m.recording[deviceID] = struct{}{}
		return
	}
	delete(m.recording, deviceID)
}

// Recorder drives the per-device Idle/Recording state machine and feeds the
// track store while a device is recording. All transitions and fix
// handling are serialized so a session snapshot never sees a partial append.
type Recorder struct {
	mu       sync.Mutex
	states   StateRepository
	store    *TrackStore
	liveness *Liveness
}

func NewRecorder(states StateRepository, store *TrackStore, liveness *Liveness) *Recorder {
	if states == nil {
		states = NewMemoryStates()
	}
	return &Recorder{states: states, store: store, liveness: liveness}
}

// Start begins a recording session. It reports false if the device was
// already recording; earlier points are kept either way.
func (r *Recorder) Start(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.states.Get(deviceID) == Recording {
		return false
	}
	r.states.Set(deviceID, Recording)
	r.store.BeginSession(deviceID)
	return true
}

// Stop ends the session and returns its points for export. The track store
// is left untouched so the session can be exported again.
func (r *Recorder) Stop(deviceID string) ([]PathPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.states.Get(deviceID) != Recording {
		return nil, ErrNotRecording
	}
	r.states.Set(deviceID, Idle)
	return gate(r.store.Session(deviceID))
}

// LastSession returns the current or most recent session for re-export.
func (r *Recorder) LastSession(deviceID string) ([]PathPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gate(r.store.Session(deviceID))
}

func (r *Recorder) IsRecording(deviceID string) bool {
	return r.states.Get(deviceID) == Recording
}

// OnFix marks the device as seen at seenAt and appends the fix to its track
// when recording. It reports whether a point was appended.
func (r *Recorder) OnFix(fix Fix, seenAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.liveness.Touch(fix.DeviceID, seenAt)
	if r.states.Get(fix.DeviceID) != Recording {
		return false
	}
	return r.store.Append(fix.DeviceID, fix.point())
}

// Expire drops the device's liveness record and track if it has not
// reported since cutoff. The recording flag survives expiry.
func (r *Recorder) Expire(deviceID string, cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.liveness.ForgetIfStale(deviceID, cutoff) {
		return false
	}
	r.store.Clear(deviceID)
	return true
}

func gate(points []PathPoint) ([]PathPoint, error) {
	if len(points) < 2 {
		return nil, ErrInsufficientTrackData
	}
	return points, nil
}

// Core bundles the in-memory tracking state shared by the ingestion path
// and the reaper.
type Core struct {
	Store    *TrackStore
	Liveness *Liveness
	Recorder *Recorder
}

func NewCore(states StateRepository) *Core {
	store := NewTrackStore()
	liveness := NewLiveness()
	return &Core{
		Store:    store,
		Liveness: liveness,
		Recorder: NewRecorder(states, store, liveness),
	}
}
