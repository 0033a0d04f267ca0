// Package coordinates provides great-circle distances and bounding box
// helpers on top of github.com/skypies/geo types.
//
// Boxes follow the map convention: SW is the south-west corner and NE the
// north-east corner. A box whose SW longitude is greater than its NE
// longitude crosses the antimeridian.
package coordinates

import (
	"math"

	"github.com/skypies/geo"
)

// Constants for coordinate calculations
const (
	// KmPerNauticalMile converts nautical miles to kilometers
	KmPerNauticalMile = 1.852

	// MetersPerNauticalMile converts nautical miles to meters
	MetersPerNauticalMile = 1852.0

	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048
)

// World covers the whole globe.
var World = geo.LatlongBox{
	SW: geo.Latlong{Lat: -90, Long: -180},
	NE: geo.Latlong{Lat: 90, Long: 180},
}

// NewBox builds a box from its edges.
func NewBox(north, west, south, east float64) geo.LatlongBox {
	return geo.LatlongBox{
		SW: geo.Latlong{Lat: south, Long: west},
		NE: geo.Latlong{Lat: north, Long: east},
	}
}

// DistanceNauticalMiles calculates the great-circle distance between two points.
func DistanceNauticalMiles(from, to geo.Latlong) float64 {
	return from.DistKM(to) / KmPerNauticalMile
}

// DistanceMeters calculates the great-circle distance between two points in meters.
func DistanceMeters(from, to geo.Latlong) float64 {
	return from.DistKM(to) * 1000.0
}

// NauticalMilesToMeters converts a distance in nautical miles to meters.
func NauticalMilesToMeters(nm float64) float64 {
	return nm * MetersPerNauticalMile
}

// NormalizeLongitude ensures longitude is in the range [-180, 180].
func NormalizeLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// CrossesAntimeridian reports whether the box wraps around longitude 180.
func CrossesAntimeridian(box geo.LatlongBox) bool {
	return box.SW.Long > box.NE.Long
}

// WidthDegrees returns the longitudinal extent of the box.
func WidthDegrees(box geo.LatlongBox) float64 {
	if CrossesAntimeridian(box) {
		return 360 - box.SW.Long + box.NE.Long
	}
	return box.NE.Long - box.SW.Long
}

// HeightDegrees returns the latitudinal extent of the box.
func HeightDegrees(box geo.LatlongBox) float64 {
	return box.NE.Lat - box.SW.Lat
}

// SplitAtAntimeridian returns the box itself, or the eastern and western
// halves if it crosses the antimeridian.
func SplitAtAntimeridian(box geo.LatlongBox) []geo.LatlongBox {
	if !CrossesAntimeridian(box) {
		return []geo.LatlongBox{box}
	}
	return []geo.LatlongBox{
		NewBox(box.NE.Lat, box.SW.Long, box.SW.Lat, 180),
		NewBox(box.NE.Lat, -180, box.SW.Lat, box.NE.Long),
	}
}

// Inflate grows the box on every side by factor times its extent plus
// increment degrees. Latitudes are clamped to the poles and a box that
// grows beyond 360 degrees of longitude becomes a full band.
func Inflate(box geo.LatlongBox, factor, increment float64) geo.LatlongBox {
	width := WidthDegrees(box)
	dLon := width*factor + increment
	dLat := HeightDegrees(box)*factor + increment

	north := math.Min(box.NE.Lat+dLat, 90)
	south := math.Max(box.SW.Lat-dLat, -90)

	if width+2*dLon >= 360 {
		return NewBox(north, -180, south, 180)
	}
	return NewBox(north, NormalizeLongitude(box.SW.Long-dLon), south, NormalizeLongitude(box.NE.Long+dLon))
}

// Contains reports whether pos is inside the box, honoring antimeridian
// crossing boxes.
func Contains(box geo.LatlongBox, pos geo.Latlong) bool {
	for _, part := range SplitAtAntimeridian(box) {
		if part.Contains(pos) {
			return true
		}
	}
	return false
}

// ContainsBox reports whether outer completely covers inner.
func ContainsBox(outer, inner geo.LatlongBox) bool {
	if inner.SW.Lat < outer.SW.Lat || inner.NE.Lat > outer.NE.Lat {
		return false
	}

	ow, oe := unwrap(outer)
	if oe-ow >= 360 {
		return true
	}
	iw, ie := unwrap(inner)
	for _, shift := range []float64{0, 360, -360} {
		if iw+shift >= ow && ie+shift <= oe {
			return true
		}
	}
	return false
}

// unwrap returns west and east edges with east >= west, possibly beyond 180.
func unwrap(box geo.LatlongBox) (float64, float64) {
	west, east := box.SW.Long, box.NE.Long
	if east < west {
		east += 360
	}
	return west, east
}
