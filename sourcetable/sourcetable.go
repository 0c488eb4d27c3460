// Package sourcetable decodes the source table that an NTRIP caster sends
// in response to a request for the empty mount point.
//
// The response is an HTTP-style header, a blank line and then one record
// per line, each a list of fields separated by semicolons.  The table ends
// with the line "ENDSOURCETABLE".  A stream record looks like this:
//
//     STR;CMR;Kyiv;CMR+;;2;GPS+GLO;UA;UKR;50.45;30.52;1;0;Trimble;none;B;N;0;
//
// The fields that matter here are the record type (0), the mount point
// name (1), the data format (3), the country (8), the reference latitude
// (9) and longitude (10) and the flag (11) saying whether the caster wants
// NMEA position reports from the client.
package sourcetable

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goblimey/go-ntrip-client/position"
)

// TableEnding marks the end of a source table response.
const TableEnding = "ENDSOURCETABLE\r\n"

// endOfTableRecord is the last line of the table.
const endOfTableRecord = "ENDSOURCETABLE"

// headerSeparator separates the response header from the table.
const headerSeparator = "\r\n\r\n"

const lineSeparator = "\r\n"

// Field positions in a table record.
const (
	fieldType         = 0
	fieldName         = 1
	fieldFormat       = 3
	fieldCountry      = 8
	fieldLatitude     = 9
	fieldLongitude    = 10
	fieldNMEARequired = 11
)

// StreamRecord is the record type of a mount point that offers a stream.
const StreamRecord = "STR"

// MountPoint is one record from a source table.
type MountPoint struct {
	// Raw is the record as received, without the line ending.
	Raw string
	// Name is the mount point name, empty if the record is malformed.
	Name string
	// Reference is the approximate position of the base station.
	Reference position.Location

	// Type is the record type - STR, CAS or NET.
	Type string
	// Format is the format of the correction data, for example RTCM 3.2.
	Format string
	// Country is the three letter country code.
	Country string
	// RequiresNMEA is true if the caster expects position reports.
	RequiresNMEA bool
}

// HasTableEnding returns true if the data ends with the source table
// terminator.
func HasTableEnding(data []byte) bool {
	return bytes.HasSuffix(data, []byte(TableEnding))
}

// Parse extracts the mount points from a caster's response.  If the
// response has no header separator it returns an empty list.  The caller
// is expected to have checked the table ending already.
func Parse(data []byte) []MountPoint {
	mountPoints := make([]MountPoint, 0)

	tableStart := bytes.Index(data, []byte(headerSeparator))
	if tableStart < 0 {
		return mountPoints
	}

	rest := string(data[tableStart+len(headerSeparator):])
	for {
		rowEnd := strings.Index(rest, lineSeparator)
		if rowEnd < 0 {
			// Anything after the last line ending is ignored.
			break
		}
		row := rest[:rowEnd]
		rest = rest[rowEnd+len(lineSeparator):]

		if row == endOfTableRecord {
			continue
		}

		mountPoints = append(mountPoints, newMountPoint(row))
	}

	return mountPoints
}

// newMountPoint creates a MountPoint from a table record.
func newMountPoint(row string) MountPoint {
	fields := strings.Split(row, ";")
	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	mountPoint := MountPoint{
		Raw:          row,
		Name:         getName(row),
		Type:         fields[fieldType],
		Format:       field(fieldFormat),
		Country:      field(fieldCountry),
		RequiresNMEA: field(fieldNMEARequired) == "1",
	}

	var latitude, longitude float64
	if len(fields) > fieldLatitude {
		latitude = DecodeCoordinate(fields[fieldLatitude])
	}
	if len(fields) > fieldLongitude {
		longitude = DecodeCoordinate(fields[fieldLongitude])
	}
	mountPoint.Reference = position.New(latitude, longitude, 0)

	return mountPoint
}

// getName returns the text between the first and second semicolons, or
// the empty string if there aren't two.
func getName(row string) string {
	start := strings.Index(row, ";")
	if start < 0 {
		return ""
	}
	start++
	length := strings.Index(row[start:], ";")
	if length < 0 {
		return ""
	}
	return row[start : start+length]
}

// DecodeCoordinate converts a latitude or longitude field to a number.
//
// The whole part and the digits after the point are decoded as separate
// integers and combined as whole + fraction/10^len(fraction).  The sign is
// only seen by the whole part, so "-0.5" gives 0.5 and "-30.25" gives
// -29.75.  Casters send negative values for southern and western stations,
// so their references are off by up to two degrees.
//
// A field with no point is decoded as an integer.  A part that doesn't
// start with a number counts as zero.
func DecodeCoordinate(field string) float64 {
	dot := strings.Index(field, ".")
	if dot < 0 {
		return float64(leadingInt(field))
	}

	whole := leadingInt(field[:dot])
	fractionText := field[dot+1:]
	fraction := leadingInt(fractionText)

	return float64(fraction)/math.Pow(10, float64(len(fractionText))) + float64(whole)
}

// leadingInt decodes the optional minus sign and digits at the start of
// the text as a 32-bit integer.  It returns 0 if there are no digits or
// the value is out of range.
func leadingInt(text string) int32 {
	end := 0
	if end < len(text) && text[end] == '-' {
		end++
	}
	digitStart := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digitStart {
		return 0
	}

	value, err := strconv.ParseInt(text[:end], 10, 32)
	if err != nil {
		return 0
	}
	return int32(value)
}

// Streams returns the stream records from the list.
func Streams(mountPoints []MountPoint) []MountPoint {
	streams := make([]MountPoint, 0, len(mountPoints))
	for _, mp := range mountPoints {
		if mp.Type == StreamRecord && len(mp.Name) > 0 {
			streams = append(streams, mp)
		}
	}
	return streams
}

// Nearest returns the stream whose reference position is closest to the
// given location.  The result is false if the list holds no streams.
func Nearest(mountPoints []MountPoint, location position.Location) (MountPoint, bool) {
	var nearest MountPoint
	found := false
	shortest := math.Inf(1)
	for _, mp := range Streams(mountPoints) {
		distance := location.DistanceTo(mp.Reference)
		if distance < shortest {
			shortest = distance
			nearest = mp
			found = true
		}
	}
	return nearest, found
}
