// Package reaper forgets devices that stopped reporting.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"backend-avltrack/internal/observability"
)

const (
	DefaultThreshold = 30 * time.Second
	DefaultInterval  = 5 * time.Second
)

type Scanner interface {
	Expired(now time.Time, threshold time.Duration) []string
}

type Expirer interface {
	Expire(deviceID string, cutoff time.Time) bool
}

type Purger interface {
	PurgeDevice(ctx context.Context, deviceID string) error
}

type Sweeper struct {
	Liveness  Scanner
	Recorder  Expirer
	Purger    Purger
	Threshold time.Duration
	Interval  time.Duration

	log *slog.Logger
	now func() time.Time
}

func New(liveness Scanner, recorder Expirer, purger Purger, threshold, interval time.Duration, logger *slog.Logger) *Sweeper {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		Liveness:  liveness,
		Recorder:  recorder,
		Purger:    purger,
		Threshold: threshold,
		Interval:  interval,
		log:       observability.LoggerOr(logger),
		now:       time.Now,
	}
}

// Sweep expires every device last seen before now-Threshold and returns the
// ids that were actually purged. A device that reported between the scan and
// the purge is skipped.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) []string {
	cutoff := now.Add(-s.Threshold)
	var purged []string
	for _, deviceID := range s.Liveness.Expired(now, s.Threshold) {
		if !s.Recorder.Expire(deviceID, cutoff) {
			continue
		}
		purged = append(purged, deviceID)
		observability.DevicesExpired.Inc()
		s.log.Info("device expired", "device_id", deviceID)

		if s.Purger == nil {
			continue
		}
		if err := s.Purger.PurgeDevice(ctx, deviceID); err != nil {
			s.log.Warn("purge device failed", "device_id", deviceID, "error", err)
		}
	}
	return purged
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, s.now())
		}
	}
}
