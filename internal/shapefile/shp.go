package shapefile

import (
	"encoding/binary"
	"math"
)

const (
	fileCode      = 9994
	version       = 1000
	shapePolyLine = 3

	headerBytes       = 100
	recordHeaderBytes = 8
	numParts          = 1
	numRecords        = 1
)

// ContentLengthBytes is the size of a single-part PolyLine record body.
func ContentLengthBytes(numPoints int) int {
	// shape type, bbox, numParts, numPoints, part indexes, points
	return 4 + 32 + 4 + 4 + 4*numParts + 16*numPoints
}

func encodeSHP(points []Point, box bounds) []byte {
	content := ContentLengthBytes(len(points))
	fileWords := headerBytes/2 + (recordHeaderBytes+content)/2

	buf := make([]byte, 0, headerBytes+recordHeaderBytes+content)
	buf = appendHeader(buf, fileWords, box)

	buf = binary.BigEndian.AppendUint32(buf, 1)
	buf = binary.BigEndian.AppendUint32(buf, uint32(content/2))

	buf = binary.LittleEndian.AppendUint32(buf, shapePolyLine)
	buf = appendBox(buf, box)
	buf = binary.LittleEndian.AppendUint32(buf, numParts)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(points)))
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	for _, p := range points {
		buf = appendFloat(buf, p.Lon)
		buf = appendFloat(buf, p.Lat)
	}
	return buf
}

func encodeSHX(points []Point, box bounds) []byte {
	content := ContentLengthBytes(len(points))
	fileWords := headerBytes/2 + numRecords*4

	buf := make([]byte, 0, headerBytes+numRecords*8)
	buf = appendHeader(buf, fileWords, box)

	// the only record starts right after the 100-byte header
	buf = binary.BigEndian.AppendUint32(buf, headerBytes/2)
	buf = binary.BigEndian.AppendUint32(buf, uint32(content/2))
	return buf
}

// appendHeader writes the 100-byte main file header shared by .shp and .shx.
func appendHeader(buf []byte, fileWords int, box bounds) []byte {
	buf = binary.BigEndian.AppendUint32(buf, fileCode)
	for i := 0; i < 5; i++ {
		buf = binary.BigEndian.AppendUint32(buf, 0)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(fileWords))
	buf = binary.LittleEndian.AppendUint32(buf, version)
	buf = binary.LittleEndian.AppendUint32(buf, shapePolyLine)
	buf = appendBox(buf, box)
	// zmin, zmax, mmin, mmax
	for i := 0; i < 4; i++ {
		buf = appendFloat(buf, 0)
	}
	return buf
}

func appendBox(buf []byte, box bounds) []byte {
	buf = appendFloat(buf, box.xmin)
	buf = appendFloat(buf, box.ymin)
	buf = appendFloat(buf, box.xmax)
	return appendFloat(buf, box.ymax)
}

func appendFloat(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
}
