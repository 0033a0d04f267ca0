// Package whazzup parses the payloads published by online flight
// networks: status documents, whazzup documents in the legacy text and
// JSON formats, transceiver lists and server lists.
package whazzup

import (
	"fmt"
	"strings"
)

// Format identifies the layout of a whazzup document.
type Format int

const (
	Unknown Format = iota
	VATSIM
	VATSIMJSON3
	IVAO
	IVAOJSON2
)

// IsJSON reports whether the format is one of the JSON variants.
func (f Format) IsJSON() bool {
	return f == VATSIMJSON3 || f == IVAOJSON2
}

func (f Format) String() string {
	switch f {
	case VATSIM:
		return "VATSIM"
	case VATSIMJSON3:
		return "VATSIM JSON 3"
	case IVAO:
		return "IVAO"
	case IVAOJSON2:
		return "IVAO JSON 2"
	default:
		return "Unknown"
	}
}

// ParseFormat converts a configuration format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "vatsim":
		return VATSIM, nil
	case "vatsim_json", "vatsim_json3":
		return VATSIMJSON3, nil
	case "ivao":
		return IVAO, nil
	case "ivao_json", "ivao_json2":
		return IVAOJSON2, nil
	default:
		return Unknown, fmt.Errorf("unknown whazzup format %q", name)
	}
}

// FacilityType is the kind of ATC position a controller client staffs.
type FacilityType int

const (
	FacilityUnknown FacilityType = iota
	FacilityObserver
	FacilityFlightInformation
	FacilityDelivery
	FacilityGround
	FacilityTower
	FacilityApproach
	FacilityACC
	FacilityDeparture
)

// AllFacilityTypes lists every facility type including unknown.
func AllFacilityTypes() []FacilityType {
	return []FacilityType{
		FacilityUnknown,
		FacilityObserver,
		FacilityFlightInformation,
		FacilityDelivery,
		FacilityGround,
		FacilityTower,
		FacilityApproach,
		FacilityACC,
		FacilityDeparture,
	}
}

func (f FacilityType) String() string {
	switch f {
	case FacilityObserver:
		return "Observer"
	case FacilityFlightInformation:
		return "FIR"
	case FacilityDelivery:
		return "Clearance Delivery"
	case FacilityGround:
		return "Ground"
	case FacilityTower:
		return "Tower"
	case FacilityApproach:
		return "Approach"
	case FacilityACC:
		return "Area"
	case FacilityDeparture:
		return "Departure"
	default:
		return "Unknown"
	}
}

// FacilityFromCode maps the numeric facility type used by VATSIM and the
// legacy IVAO text format.
func FacilityFromCode(code int) FacilityType {
	switch code {
	case 0:
		return FacilityObserver
	case 1:
		return FacilityFlightInformation
	case 2:
		return FacilityDelivery
	case 3:
		return FacilityGround
	case 4:
		return FacilityTower
	case 5:
		return FacilityApproach
	case 6:
		return FacilityACC
	case 7:
		return FacilityDeparture
	default:
		return FacilityUnknown
	}
}

// FacilityFromIVAO maps the position names of the IVAO JSON format.
func FacilityFromIVAO(position string) FacilityType {
	switch strings.ToUpper(position) {
	case "OBS":
		return FacilityObserver
	case "FSS", "FIR":
		return FacilityFlightInformation
	case "DEL":
		return FacilityDelivery
	case "GND":
		return FacilityGround
	case "TWR":
		return FacilityTower
	case "APP":
		return FacilityApproach
	case "CTR":
		return FacilityACC
	case "DEP":
		return FacilityDeparture
	default:
		return FacilityUnknown
	}
}

// ClientKind separates pilots from controllers and observers.
type ClientKind int

const (
	Pilot ClientKind = iota
	ATC
	Observer
)

func (k ClientKind) String() string {
	switch k {
	case ATC:
		return "ATC"
	case Observer:
		return "Observer"
	default:
		return "Pilot"
	}
}
