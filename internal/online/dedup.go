package online

import (
	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/coordinates"
)

// MinDistanceDuplicateMeters is the distance below which an online client
// and a simulator aircraft with the same registration are one aircraft.
// About 500 knots for three minutes.
var MinDistanceDuplicateMeters = coordinates.NauticalMilesToMeters(minDistanceDuplicateNm)

// isDuplicate reports whether two positions of the same registration are
// close enough to be the same aircraft.
func isDuplicate(a, b geo.Latlong) bool {
	return coordinates.DistanceMeters(a, b) < MinDistanceDuplicateMeters
}

// filterDuplicates removes online aircraft that have a simulator aircraft
// with the same registration close by.
func filterDuplicates(online []Aircraft, registrations map[string]geo.Latlong) []Aircraft {
	result := online[:0]
	for _, ac := range online {
		if pos, ok := registrations[ac.Registration]; ok && isDuplicate(ac.Position, pos) {
			continue
		}
		result = append(result, ac)
	}
	return result
}
