// Package shapefile encodes a recorded track as an ESRI Shapefile bundle:
// a single PolyLine record with its index, attribute table and WGS84
// projection.
package shapefile

import (
	"errors"
	"time"
)

// ErrTooFewPoints is returned when a track has fewer than two points.
var ErrTooFewPoints = errors.New("shapefile: polyline needs at least 2 points")

// Extensions lists the bundle members in the order they are written.
var Extensions = []string{"shp", "shx", "dbf", "prj"}

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Bundle holds the four files that make up one exported track.
type Bundle struct {
	SHP []byte
	SHX []byte
	DBF []byte
	PRJ []byte
}

// File returns the bytes for the given extension, or nil.
func (b Bundle) File(ext string) []byte {
	switch ext {
	case "shp":
		return b.SHP
	case "shx":
		return b.SHX
	case "dbf":
		return b.DBF
	case "prj":
		return b.PRJ
	}
	return nil
}

// Encoder builds bundles. Now stamps the DBF header date; output is
// otherwise a pure function of the points.
type Encoder struct {
	Now func() time.Time
}

// Encode builds a bundle using the wall clock for the DBF date.
func Encode(points []Point) (Bundle, error) {
	return Encoder{}.Encode(points)
}

func (e Encoder) Encode(points []Point) (Bundle, error) {
	if len(points) < 2 {
		return Bundle{}, ErrTooFewPoints
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	box := boundsOf(points)
	return Bundle{
		SHP: encodeSHP(points, box),
		SHX: encodeSHX(points, box),
		DBF: encodeDBF(points[0], now()),
		PRJ: []byte(WGS84),
	}, nil
}

type bounds struct {
	xmin, ymin, xmax, ymax float64
}

// boundsOf maps lon to x and lat to y.
func boundsOf(points []Point) bounds {
	b := bounds{
		xmin: points[0].Lon, xmax: points[0].Lon,
		ymin: points[0].Lat, ymax: points[0].Lat,
	}
	for _, p := range points[1:] {
		b.xmin = min(b.xmin, p.Lon)
		b.xmax = max(b.xmax, p.Lon)
		b.ymin = min(b.ymin, p.Lat)
		b.ymax = max(b.ymax, p.Lat)
	}
	return b
}
