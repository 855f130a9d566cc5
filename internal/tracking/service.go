package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"backend-avltrack/internal/db"
	"backend-avltrack/internal/observability"
	"backend-avltrack/internal/shapefile"
	"backend-avltrack/internal/shared/geo"
	"backend-avltrack/internal/storage"
	"backend-avltrack/internal/stream"

	"github.com/go-playground/validator/v10"
)

// Service connects the in-memory tracking core to the database, the live
// stream and shapefile storage. db, hub and files may be nil.
type Service struct {
	db       db.Querier
	core     *Core
	hub      *stream.Hub
	files    *storage.Service
	encoder  shapefile.Encoder
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewService(db db.Querier, core *Core, hub *stream.Hub, files *storage.Service, logger *slog.Logger) *Service {
	if core == nil {
		core = NewCore(nil)
	}
	return &Service{
		db:       db,
		core:     core,
		hub:      hub,
		files:    files,
		validate: validator.New(),
		log:      observability.LoggerOr(logger),
		now:      time.Now,
	}
}

// ParseFix validates an ingestion payload and stamps it with the receive
// time unless the device supplied one.
func (s *Service) ParseFix(req LocationUpdate) (Fix, error) {
	if err := s.validate.Struct(req); err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrInvalidFix, err)
	}
	fix := Fix{
		DeviceID:  req.DeviceID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Battery:   int(*req.Battery),
		Model:     *req.Model,
		Timestamp: s.now(),
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		fix.Timestamp = *req.Timestamp
	}
	return fix, nil
}

// UpdateLocation stores the device's latest location and feeds the fix to
// the recorder. It reports whether the fix was appended to a recording.
func (s *Service) UpdateLocation(ctx context.Context, fix Fix) (bool, error) {
	receivedAt := s.now()

	if s.db != nil {
		_, err := s.db.Exec(ctx, `
			INSERT INTO locations (device_id, latitude, longitude, battery, model, last_updated)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (device_id) DO UPDATE
			SET latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude,
			    battery=EXCLUDED.battery, model=EXCLUDED.model, last_updated=EXCLUDED.last_updated
		`, fix.DeviceID, fix.Latitude, fix.Longitude, fix.Battery, fix.Model, receivedAt)
		if err != nil {
			return false, err
		}
	}

	observability.FixesAccepted.Inc()
	appended := s.core.Recorder.OnFix(fix, receivedAt)
	if !appended {
		return false, nil
	}
	observability.PathPointsAppended.Inc()

	if s.db != nil {
		_, err := s.db.Exec(ctx, `
			INSERT INTO path_points (device_id, latitude, longitude, recorded_at)
			VALUES ($1,$2,$3,$4)
		`, fix.DeviceID, fix.Latitude, fix.Longitude, fix.Timestamp)
		if err != nil {
			s.log.Error("persist path point failed", "device_id", fix.DeviceID, "error", err)
		}
	}

	if s.hub != nil {
		payload, _ := json.Marshal(livePoint{
			DeviceID:  fix.DeviceID,
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Battery:   fix.Battery,
			Timestamp: fix.Timestamp,
		})
		s.hub.Broadcast(fix.DeviceID, payload)
	}
	return true, nil
}

func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	locations := []Location{}
	if s.db == nil {
		return locations, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT device_id, latitude, longitude, battery, model, last_updated
		FROM locations
		ORDER BY last_updated DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.DeviceID, &l.Latitude, &l.Longitude, &l.Battery, &l.Model, &l.LastUpdated); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (s *Service) StartRecording(deviceID string) {
	if s.core.Recorder.Start(deviceID) {
		s.log.Info("recording started", "device_id", deviceID)
	}
}

func (s *Service) IsRecording(deviceID string) bool {
	return s.core.Recorder.IsRecording(deviceID)
}

// StopRecording ends the device's session and saves it as a shapefile.
func (s *Service) StopRecording(ctx context.Context, deviceID string) (Export, error) {
	points, err := s.core.Recorder.Stop(deviceID)
	if err != nil {
		observability.Exports.WithLabelValues("rejected").Inc()
		return Export{}, err
	}
	s.log.Info("recording stopped", "device_id", deviceID, "points", len(points))
	return s.export(ctx, deviceID, points)
}

// ExportLastSession re-exports the most recent session, e.g. after a
// failed write.
func (s *Service) ExportLastSession(ctx context.Context, deviceID string) (Export, error) {
	points, err := s.core.Recorder.LastSession(deviceID)
	if err != nil {
		observability.Exports.WithLabelValues("rejected").Inc()
		return Export{}, err
	}
	return s.export(ctx, deviceID, points)
}

func (s *Service) export(ctx context.Context, deviceID string, points []PathPoint) (Export, error) {
	coords := make([]shapefile.Point, len(points))
	for i, p := range points {
		coords[i] = shapefile.Point{Lat: p.Latitude, Lon: p.Longitude}
	}

	start := time.Now()
	bundle, err := s.encoder.Encode(coords)
	observability.ObserveEncodeLatency(start)
	if err != nil {
		observability.Exports.WithLabelValues("failed").Inc()
		return Export{}, err
	}

	exp := Export{DeviceID: deviceID, Points: len(points)}
	if s.files != nil {
		exp.Files, err = s.files.SaveBundle(ctx, deviceID, bundle)
		if err != nil {
			observability.Exports.WithLabelValues("failed").Inc()
			s.log.Error("save shapefile failed", "device_id", deviceID, "error", err)
			return Export{}, err
		}
	}
	observability.Exports.WithLabelValues("ok").Inc()
	return exp, nil
}

// Path returns the device's track and, with two or more points, the speed
// between the last two of the returned points.
func (s *Service) Path(deviceID string) Path {
	path := Path{Points: s.core.Store.ReadAll(deviceID)}
	if speed, ok := lastSpeed(path.Points); ok {
		path.SpeedKmh = &speed
	}
	return path
}

func lastSpeed(points []PathPoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	prev, last := points[len(points)-2], points[len(points)-1]
	return geo.SpeedKmh(
		geo.Position{Lat: prev.Latitude, Lng: prev.Longitude, At: prev.Timestamp},
		geo.Position{Lat: last.Latitude, Lng: last.Longitude, At: last.Timestamp},
	)
}

// PurgeDevice removes the device's persisted location and path history.
func (s *Service) PurgeDevice(ctx context.Context, deviceID string) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM locations WHERE device_id=$1`, deviceID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM path_points WHERE device_id=$1`, deviceID)
	return err
}
