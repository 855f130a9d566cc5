package shapefile

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dbfVersion    = 3
	dbfHeaderEnd  = 0x0D
	dbfFileEnd    = 0x1A
	dbfNotDeleted = ' '
	dbfFieldBytes = 32
	dbfNameBytes  = 11

	// firstFID identifies the single track record.
	firstFID = 1
)

type dbfField struct {
	name   string
	length int
}

var dbfFields = []dbfField{
	{name: "FID", length: 10},
	{name: "Latitude", length: 20},
	{name: "Longitude", length: 20},
}

func dbfHeaderLength() int {
	return 32 + dbfFieldBytes*len(dbfFields) + 1
}

func dbfRecordLength() int {
	n := 1
	for _, f := range dbfFields {
		n += f.length
	}
	return n
}

// encodeDBF writes a dBase III table with one character-typed record
// describing the track's first point.
func encodeDBF(first Point, date time.Time) []byte {
	buf := make([]byte, 0, dbfHeaderLength()+dbfRecordLength()+1)

	buf = append(buf, dbfVersion, byte(date.Year()-1900), byte(date.Month()), byte(date.Day()))
	buf = binary.LittleEndian.AppendUint32(buf, numRecords)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(dbfHeaderLength()))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(dbfRecordLength()))
	buf = append(buf, make([]byte, 20)...)

	for _, f := range dbfFields {
		name := make([]byte, dbfNameBytes)
		copy(name, f.name)
		buf = append(buf, name...)
		buf = append(buf, 'C')
		buf = append(buf, 0, 0, 0, 0)
		buf = append(buf, byte(f.length), 0)
		buf = append(buf, make([]byte, 14)...)
	}
	buf = append(buf, dbfHeaderEnd)

	buf = append(buf, dbfNotDeleted)
	buf = append(buf, padRight(strconv.Itoa(firstFID), 10)...)
	buf = append(buf, padLeft(fmt.Sprintf("%.6f", first.Lat), 20)...)
	buf = append(buf, padLeft(fmt.Sprintf("%.6f", first.Lon), 20)...)
	return append(buf, dbfFileEnd)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}
