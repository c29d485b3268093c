// Package geo holds the static arena reference table and the travel-burden
// derivations built on it. It is a leaf: no package in this module sits
// below it.
package geo

import "math"

// Arena is one home venue: coordinates, elevation in feet, and the UTC
// offset of its local timezone (standard time).
type Arena struct {
	Lat       float64
	Lon       float64
	Elevation float64
	UTCOffset float64
}

// arenas maps team abbreviation to home venue. LAC and LAL share a building
// footprint for travel purposes.
var arenas = map[string]Arena{
	"ATL": {33.7573, -84.3963, 997, -5},
	"BOS": {42.3662, -71.0621, 13, -5},
	"BKN": {40.6826, -73.9754, 49, -5},
	"CHA": {35.2251, -80.8392, 728, -5},
	"CHI": {41.8806, -87.6742, 594, -6},
	"CLE": {41.4965, -81.6881, 653, -5},
	"DAL": {32.7905, -96.8103, 453, -6},
	"DEN": {39.7486, -105.0075, 5280, -7},
	"DET": {42.3411, -83.0550, 600, -5},
	"GSW": {37.7680, -122.3877, 16, -8},
	"HOU": {29.7508, -95.3621, 43, -6},
	"IND": {39.7639, -86.1555, 715, -5},
	"LAC": {34.0430, -118.2673, 267, -8},
	"LAL": {34.0430, -118.2673, 267, -8},
	"MEM": {35.1381, -90.0506, 256, -6},
	"MIA": {25.7814, -80.1870, 10, -5},
	"MIL": {43.0451, -87.9172, 594, -6},
	"MIN": {44.9795, -93.2761, 830, -6},
	"NOP": {29.9490, -90.0821, -3, -6},
	"NYK": {40.7505, -73.9934, 36, -5},
	"OKC": {35.4634, -97.5151, 1195, -6},
	"ORL": {28.5392, -81.3839, 98, -5},
	"PHI": {39.9012, -75.1720, 13, -5},
	"PHX": {33.4457, -112.0712, 1086, -7},
	"POR": {45.5316, -122.6668, 30, -8},
	"SAC": {38.5802, -121.4997, 26, -8},
	"SAS": {29.4270, -98.4375, 650, -6},
	"TOR": {43.6435, -79.3791, 249, -5},
	"UTA": {40.7683, -111.9011, 4226, -7},
	"WAS": {38.8982, -77.0209, 40, -5},
}

// highAltitude is the fixed set of venues that earn the altitude flag.
var highAltitude = map[string]bool{
	"DEN": true,
	"UTA": true,
}

// Lookup resolves the home venue for a team abbreviation. Unknown tokens
// miss; callers degrade to absent venue attributes.
func Lookup(team string) (Arena, bool) {
	a, ok := arenas[team]
	return a, ok
}

// IsHighAltitude reports whether team's venue is in the high-elevation set.
func IsHighAltitude(team string) bool {
	return highAltitude[team]
}

// earthRadiusMiles is the radius used by the great-circle distance.
const earthRadiusMiles = 3958.8

// Haversine returns the great-circle distance in miles between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * earthRadiusMiles * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Travel directions. The dead zone keeps court-to-court shuffles within one
// metro area from registering as travel.
const (
	DirectionEast = "Eastward"
	DirectionWest = "Westward"
	DirectionNone = "None"

	directionDeadZoneDeg = 0.5
)

// TravelDirection classifies the longitude delta between consecutive
// venues. Unknown venues (NaN longitudes) yield DirectionNone.
func TravelDirection(prevLon, lon float64) string {
	if math.IsNaN(prevLon) || math.IsNaN(lon) {
		return DirectionNone
	}
	diff := lon - prevLon
	switch {
	case diff > directionDeadZoneDeg:
		return DirectionEast
	case diff < -directionDeadZoneDeg:
		return DirectionWest
	default:
		return DirectionNone
	}
}

// TimezoneShiftBucket buckets the absolute UTC-offset delta between
// consecutive venues into {"0","1","2","3+"}. Unknown offsets yield "0".
func TimezoneShiftBucket(prevTZ, tz float64) string {
	if math.IsNaN(prevTZ) || math.IsNaN(tz) {
		return "0"
	}
	shift := math.Abs(tz - prevTZ)
	if shift >= 3 {
		return "3+"
	}
	switch int(shift) {
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "0"
	}
}
