package online

import (
	"testing"

	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

func TestFacilityRadius(t *testing.T) {
	tests := []struct {
		diameter int
		want     int
	}{
		{-1, -1},
		{-5, -1},
		{0, 1},
		{1, 1},
		{3, 1},
		{10, 5},
		{61, 30},
	}

	for _, tt := range tests {
		if got := facilityRadius(tt.diameter); got != tt.want {
			t.Errorf("Diameter %d: expected %d, got %d", tt.diameter, tt.want, got)
		}
	}
}

func TestFacilitySizes(t *testing.T) {
	sizes := FacilitySizes(config.DefaultConfig().Display)

	want := map[whazzup.FacilityType]int{
		whazzup.FacilityUnknown:           -1,
		whazzup.FacilityObserver:          -1,
		whazzup.FacilityFlightInformation: -1,
		whazzup.FacilityDelivery:          5,
		whazzup.FacilityGround:            5,
		whazzup.FacilityTower:             10,
		whazzup.FacilityApproach:          30,
		whazzup.FacilityACC:               -1,
		whazzup.FacilityDeparture:         30,
	}

	if len(sizes) != len(whazzup.AllFacilityTypes()) {
		t.Errorf("Expected a size for every facility type, got %d", len(sizes))
	}
	for facility, radius := range want {
		if sizes[facility] != radius {
			t.Errorf("%s: expected %d, got %d", facility, radius, sizes[facility])
		}
	}
}
