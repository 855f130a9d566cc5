package tracking

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func pt(lat, lng float64, offset time.Duration) PathPoint {
	return PathPoint{Latitude: lat, Longitude: lng, Timestamp: t0.Add(offset)}
}

func TestTrackStoreAppendAndReadAll(t *testing.T) {
	s := NewTrackStore()
	if got := s.ReadAll("unknown"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil track for unknown device")
	}

	s.Append("dev-1", pt(0, 0, 0))
	s.Append("dev-1", pt(0, 1, time.Second))
	s.Append("dev-2", pt(5, 5, 0))

	got := s.ReadAll("dev-1")
	if len(got) != 2 || got[1].Longitude != 1 {
		t.Fatalf("unexpected track %+v", got)
	}

	got[0].Latitude = 99
	if s.ReadAll("dev-1")[0].Latitude == 99 {
		t.Fatalf("ReadAll must return a copy")
	}
}

func TestTrackStoreRejectsOlderPoints(t *testing.T) {
	s := NewTrackStore()
	if !s.Append("dev-1", pt(0, 0, 10*time.Second)) {
		t.Fatalf("first point rejected")
	}
	if s.Append("dev-1", pt(0, 1, 5*time.Second)) {
		t.Fatalf("older point accepted")
	}
	if !s.Append("dev-1", pt(0, 2, 10*time.Second)) {
		t.Fatalf("equal timestamp should be accepted")
	}
	if n := len(s.ReadAll("dev-1")); n != 2 {
		t.Fatalf("expected 2 points, got %d", n)
	}
}

func TestTrackStoreLatestTwo(t *testing.T) {
	s := NewTrackStore()
	if _, _, ok := s.LatestTwo("dev-1"); ok {
		t.Fatalf("expected no pair for empty track")
	}
	s.Append("dev-1", pt(0, 0, 0))
	if _, _, ok := s.LatestTwo("dev-1"); ok {
		t.Fatalf("expected no pair for single point")
	}
	s.Append("dev-1", pt(0, 1, time.Minute))
	s.Append("dev-1", pt(0, 2, 2*time.Minute))

	prev, last, ok := s.LatestTwo("dev-1")
	if !ok || prev.Longitude != 1 || last.Longitude != 2 {
		t.Fatalf("unexpected latest pair %+v %+v", prev, last)
	}
}

func TestTrackStoreSession(t *testing.T) {
	s := NewTrackStore()
	if got := s.Session("dev-1"); len(got) != 0 {
		t.Fatalf("expected empty session")
	}
	s.Append("dev-1", pt(0, 0, 0))
	s.BeginSession("dev-1")
	s.Append("dev-1", pt(0, 1, time.Second))
	s.Append("dev-1", pt(0, 2, 2*time.Second))

	session := s.Session("dev-1")
	if len(session) != 2 || session[0].Longitude != 1 {
		t.Fatalf("unexpected session %+v", session)
	}
	if len(s.ReadAll("dev-1")) != 3 {
		t.Fatalf("history before the session must be kept")
	}
}

func TestTrackStoreClear(t *testing.T) {
	s := NewTrackStore()
	s.Append("dev-1", pt(0, 0, 0))
	s.BeginSession("dev-1")
	s.Clear("dev-1")
	if len(s.ReadAll("dev-1")) != 0 || len(s.Session("dev-1")) != 0 {
		t.Fatalf("expected cleared track")
	}
	if !s.Append("dev-1", pt(0, 0, -time.Hour)) {
		t.Fatalf("cleared track should accept any timestamp")
	}
}

func TestTrackStoreConcurrentAppendStaysOrdered(t *testing.T) {
	s := NewTrackStore()
	offsets := rand.New(rand.NewSource(1)).Perm(500)

	var wg sync.WaitGroup
	for _, off := range offsets {
		wg.Add(1)
		go func(off int) {
			defer wg.Done()
			s.Append("dev-1", pt(0, float64(off), time.Duration(off)*time.Second))
		}(off)
	}
	wg.Wait()

	points := s.ReadAll("dev-1")
	if len(points) == 0 {
		t.Fatalf("expected some points")
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			t.Fatalf("track out of order at %d", i)
		}
	}
}
