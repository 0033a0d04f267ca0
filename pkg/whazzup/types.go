package whazzup

import (
	"time"

	"github.com/skypies/geo"
)

// Status is the content of a network status document.
type Status struct {
	// Message is shown to the user if not empty
	Message string

	// WhazzupURL is the first whazzup document found
	WhazzupURL string

	// WhazzupGzipped is set if WhazzupURL points to a gzip file
	WhazzupGzipped bool

	// JSON is set if WhazzupURL points to a JSON document
	JSON bool

	// VoiceURL is the server or voice server list
	VoiceURL string

	// TransceiverURL is the transceiver list of the JSON status
	TransceiverURL string
}

// Whazzup is one parsed whazzup document.
type Whazzup struct {
	// Updated is the time the document was generated by the network
	Updated time.Time

	// ReloadMinutes is the suggested polling interval, 0 if not given
	ReloadMinutes int

	Clients []Client
	Servers []Server
}

// Client is a connected pilot, controller or observer.
type Client struct {
	// ID is the row id assigned by the store, 0 before storing
	ID int64 `json:"id"`

	Callsign       string       `json:"callsign"`
	CID            string       `json:"cid"`
	Name           string       `json:"name"`
	Kind           ClientKind   `json:"kind"`
	Position       geo.Latlong  `json:"position"`
	AltitudeFt     int          `json:"altitude_ft"`
	GroundSpeedKts int          `json:"ground_speed_kts"`
	Heading        int          `json:"heading"`
	AircraftType   string       `json:"aircraft_type,omitempty"`
	Departure      string       `json:"departure,omitempty"`
	Destination    string       `json:"destination,omitempty"`
	Route          string       `json:"route,omitempty"`
	Transponder    string       `json:"transponder,omitempty"`
	Frequency      string       `json:"frequency,omitempty"`
	Facility       FacilityType `json:"facility"`
	VisualRangeNm  int          `json:"visual_range_nm"`
	Server         string       `json:"server,omitempty"`
	LogonTime      time.Time    `json:"logon_time"`
	ATIS           string       `json:"atis,omitempty"`

	// RadiusNm is the displayed radius of controllers, set by the store
	RadiusNm int `json:"radius_nm,omitempty"`
}

// IsATC reports whether the client is a controller.
func (c Client) IsATC() bool {
	return c.Kind == ATC
}

// Server is a network or voice server.
type Server struct {
	Ident    string `json:"ident"`
	Host     string `json:"host"`
	Location string `json:"location"`
	Name     string `json:"name"`
	Voice    bool   `json:"voice"`
}

// Transceiver is one radio of a VATSIM client.
type Transceiver struct {
	FrequencyHz int64
	Position    geo.Latlong
	HeightMslM  float64
}
