package tracking

import "time"

// Fix is one accepted position report.
type Fix struct {
	DeviceID  string
	Latitude  float64
	Longitude float64
	Battery   int
	Model     string
	Timestamp time.Time
}

// PathPoint is a fix retained in a device's track.
type PathPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

func (f Fix) point() PathPoint {
	return PathPoint{Latitude: f.Latitude, Longitude: f.Longitude, Timestamp: f.Timestamp}
}

// LocationUpdate is the ingestion payload sent by devices. Pointer fields
// distinguish a missing value from a zero coordinate.
type LocationUpdate struct {
	DeviceID  string     `json:"device_id" validate:"required"`
	Latitude  *float64   `json:"latitude" validate:"required,latitude"`
	Longitude *float64   `json:"longitude" validate:"required,longitude"`
	Battery   *float64   `json:"battery" validate:"required,min=0,max=100"`
	Model     *string    `json:"model" validate:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Location is the latest known state of a device.
type Location struct {
	DeviceID    string    `json:"device_id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Battery     int       `json:"battery"`
	Model       string    `json:"model"`
	LastUpdated time.Time `json:"last_updated"`
}

type ToggleRequest struct {
	DeviceID string `json:"device_id"`
	Action   string `json:"action"`
}

// Path is the query view of a device's track.
type Path struct {
	Points   []PathPoint `json:"points"`
	SpeedKmh *float64    `json:"speed_kmh"`
}

// Export describes a saved shapefile bundle.
type Export struct {
	DeviceID string            `json:"device_id"`
	Points   int               `json:"points"`
	Files    map[string]string `json:"-"`
}

type livePoint struct {
	DeviceID  string    `json:"device_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Battery   int       `json:"battery"`
	Timestamp time.Time `json:"timestamp"`
}
