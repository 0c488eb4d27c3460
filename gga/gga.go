// Package gga builds the NMEA GGA sentence that an NTRIP client sends to
// a caster to report its position.  A caster serving a Virtual Reference
// Station (VRS) uses the position to compute corrections for that spot, so
// the sentence must follow the standard grammar exactly.
//
// The sentence looks like this:
//
//     $GPGGA,123519.00,4807.03800,N,01131.00000,E,1,12,1.0,545.40,M,0.0,M,,*4F
//
// The fields are UTC time, latitude in degrees and minutes, hemisphere,
// longitude in degrees and minutes, hemisphere, fix quality (1 - GPS fix),
// satellites in use, horizontal dilution of precision, altitude above mean
// sea level, geoid separation and the (empty) age and station of any
// differential corrections.  The checksum is the XOR of everything between
// the '$' and the '*'.
package gga

import (
	"fmt"
	"math"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/goblimey/go-ntrip-client/position"
)

// Values reported for the parts of the fix that the client doesn't know.
const (
	talker          = "GP"
	fixQuality      = 1
	satellitesInUse = 12
	hdop            = 1.0
	geoidSeparation = 0.0
)

// Build returns a checksummed GGA sentence, terminated by CR LF, giving the
// location at the given time.  The time is converted to UTC.
func Build(location position.Location, timestamp time.Time) string {
	utc := timestamp.UTC()
	centiseconds := utc.Nanosecond() / int(10*time.Millisecond)

	latitude, northSouth := degreesAndMinutes(location.Latitude, 2, "N", "S")
	longitude, eastWest := degreesAndMinutes(location.Longitude, 3, "E", "W")

	body := fmt.Sprintf("%sGGA,%02d%02d%02d.%02d,%s,%s,%s,%s,%d,%02d,%.1f,%.2f,M,%.1f,M,,",
		talker,
		utc.Hour(), utc.Minute(), utc.Second(), centiseconds,
		latitude, northSouth,
		longitude, eastWest,
		fixQuality, satellitesInUse, hdop,
		location.Elevation, geoidSeparation)

	return "$" + body + "*" + nmea.Checksum(body) + "\r\n"
}

// degreesAndMinutes converts decimal degrees to the NMEA form dddmm.mmmmm
// with the given number of degree digits, and returns the hemisphere
// letter.
func degreesAndMinutes(value float64, degreeDigits int, positive, negative string) (string, string) {
	hemisphere := positive
	if value < 0 {
		hemisphere = negative
		value = -value
	}

	degrees := math.Floor(value)
	// Round the minutes to the precision shown so that 59.999999 minutes
	// becomes the next whole degree rather than "60.00000".
	minutes := math.Round((value-degrees)*60*1e5) / 1e5
	if minutes >= 60 {
		degrees++
		minutes -= 60
	}

	return fmt.Sprintf("%0*d%08.5f", degreeDigits, int(degrees), minutes), hemisphere
}
