package online

import (
	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/coordinates"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// Aircraft is an aircraft shown on the map. It is either an online client
// or a simulator aircraft.
type Aircraft struct {
	// ID is the store row id of online clients, 0 for simulator aircraft
	ID int64 `json:"id,omitempty"`

	// Registration is the callsign of online clients
	Registration   string      `json:"registration"`
	AircraftType   string      `json:"aircraft_type,omitempty"`
	Position       geo.Latlong `json:"position"`
	AltitudeFt     float64     `json:"altitude_ft"`
	GroundSpeedKts float64     `json:"ground_speed_kts"`
	Heading        float64     `json:"heading"`
	Departure      string      `json:"departure,omitempty"`
	Destination    string      `json:"destination,omitempty"`

	// Online is set for aircraft from the network
	Online bool `json:"online"`

	// OnlineShadow marks a simulator aircraft injected for an online client
	OnlineShadow bool `json:"online_shadow"`
}

// AircraftFromClient converts a stored online client.
func AircraftFromClient(c whazzup.Client) Aircraft {
	return Aircraft{
		ID:             c.ID,
		Registration:   c.Callsign,
		AircraftType:   c.AircraftType,
		Position:       c.Position,
		AltitudeFt:     float64(c.AltitudeFt),
		GroundSpeedKts: float64(c.GroundSpeedKts),
		Heading:        float64(c.Heading),
		Departure:      c.Departure,
		Destination:    c.Destination,
		Online:         true,
	}
}

// Layer describes the map detail an aircraft query is made for.
type Layer struct {
	Detail         int
	OnlineAircraft bool
}

// SameQueryParameters reports whether results for l can be reused for other.
func (l *Layer) SameQueryParameters(other *Layer) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Detail == other.Detail && l.OnlineAircraft == other.OnlineAircraft
}

// Query rectangle handling of the aircraft cache.
const (
	queryRectInflationFactor    = 0.2
	queryRectInflationIncrement = 0.1
	queryMaxRows                = 5000
)

// aircraftCache keeps the online aircraft of the last queried rectangle.
type aircraftCache struct {
	box   geo.LatlongBox
	layer *Layer
	valid bool
	list  []Aircraft
}

// update drops the cached list unless box is covered by the inflated
// cached rectangle at the same layer. Lazy updates keep everything.
func (c *aircraftCache) update(box geo.LatlongBox, layer *Layer, lazy bool) {
	if lazy {
		return
	}

	if c.valid && c.layer.SameQueryParameters(layer) &&
		coordinates.ContainsBox(coordinates.Inflate(c.box, queryRectInflationFactor, queryRectInflationIncrement), box) {
		return
	}
	c.clear()
	c.box = box
	c.layer = layer
}

func (c *aircraftCache) fill(box geo.LatlongBox, layer *Layer, list []Aircraft) {
	c.box = box
	c.layer = layer
	c.valid = true
	c.list = list
}

// validate truncates the list to maxRows and reports an overflow.
func (c *aircraftCache) validate(maxRows int) bool {
	if len(c.list) > maxRows {
		c.list = c.list[:maxRows]
		return true
	}
	return false
}

func (c *aircraftCache) clear() {
	c.valid = false
	c.list = nil
}

func (c *aircraftCache) snapshot() []Aircraft {
	result := make([]Aircraft, len(c.list))
	copy(result, c.list)
	return result
}

// sameKeys compares the registration sets of two maps ignoring positions.
func sameKeys(a, b map[string]geo.Latlong) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
