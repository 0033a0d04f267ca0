package online

import (
	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// FacilitySizes converts the configured display diameters to radii for all
// facility types. A negative diameter yields -1 which selects the visual
// range of the payload. Other values are halved with a minimum of 1.
func FacilitySizes(display config.DisplayConfig) map[whazzup.FacilityType]int {
	sizes := make(map[whazzup.FacilityType]int)
	for _, facility := range whazzup.AllFacilityTypes() {
		diameter := -1
		switch facility {
		case whazzup.FacilityObserver:
			diameter = display.Observer
		case whazzup.FacilityFlightInformation:
			diameter = display.FIR
		case whazzup.FacilityDelivery:
			diameter = display.Clearance
		case whazzup.FacilityGround:
			diameter = display.Ground
		case whazzup.FacilityTower:
			diameter = display.Tower
		case whazzup.FacilityApproach:
			diameter = display.Approach
		case whazzup.FacilityACC:
			diameter = display.Area
		case whazzup.FacilityDeparture:
			diameter = display.Departure
		}
		sizes[facility] = facilityRadius(diameter)
	}
	return sizes
}

func facilityRadius(diameter int) int {
	if diameter < 0 {
		return -1
	}
	return max(1, diameter/2)
}
