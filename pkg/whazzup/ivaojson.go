package whazzup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skypies/geo"
)

type ivaoTrack struct {
	Altitude    float64 `json:"altitude"`
	GroundSpeed float64 `json:"groundSpeed"`
	Heading     float64 `json:"heading"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Transponder int     `json:"transponder"`
}

type ivaoClient struct {
	ID         int        `json:"id"`
	UserID     int        `json:"userId"`
	Callsign   string     `json:"callsign"`
	ServerID   string     `json:"serverId"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastTrack  *ivaoTrack `json:"lastTrack"`
	FlightPlan *struct {
		DepartureID string `json:"departureId"`
		ArrivalID   string `json:"arrivalId"`
		Route       string `json:"route"`
		AircraftID  string `json:"aircraftId"`
	} `json:"flightPlan"`
	ATCSession *struct {
		Frequency float64 `json:"frequency"`
		Position  string  `json:"position"`
	} `json:"atcSession"`
	ATIS *struct {
		Lines []string `json:"lines"`
	} `json:"atis"`
}

type ivaoServer struct {
	ID          string `json:"id"`
	Hostname    string `json:"hostname"`
	IP          string `json:"ip"`
	Description string `json:"description"`
	CountryID   string `json:"countryId"`
}

type ivaoData struct {
	UpdatedAt    time.Time    `json:"updatedAt"`
	Servers      []ivaoServer `json:"servers"`
	VoiceServers []ivaoServer `json:"voiceServers"`
	Clients      struct {
		Pilots    []ivaoClient `json:"pilots"`
		ATCs      []ivaoClient `json:"atcs"`
		Observers []ivaoClient `json:"observers"`
	} `json:"clients"`
}

// ParseIVAOJSON reads an IVAO JSON v2 whazzup document. Clients without a
// last track have no position and are skipped.
func ParseIVAOJSON(text string) (*Whazzup, error) {
	var doc ivaoData
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse IVAO JSON: %w", err)
	}
	if doc.UpdatedAt.IsZero() {
		return nil, fmt.Errorf("IVAO JSON has no update time")
	}

	w := &Whazzup{Updated: doc.UpdatedAt.UTC()}

	add := func(list []ivaoClient, kind ClientKind) {
		for _, ic := range list {
			if ic.LastTrack == nil {
				continue
			}
			c := Client{
				Callsign:       ic.Callsign,
				CID:            strconv.Itoa(ic.UserID),
				Kind:           kind,
				Position:       geo.Latlong{Lat: ic.LastTrack.Latitude, Long: ic.LastTrack.Longitude},
				AltitudeFt:     int(ic.LastTrack.Altitude),
				GroundSpeedKts: int(ic.LastTrack.GroundSpeed),
				Heading:        int(ic.LastTrack.Heading),
				Server:         ic.ServerID,
				LogonTime:      ic.CreatedAt.UTC(),
			}
			if ic.LastTrack.Transponder != 0 {
				c.Transponder = fmt.Sprintf("%04d", ic.LastTrack.Transponder)
			}
			if fp := ic.FlightPlan; fp != nil {
				c.Departure = fp.DepartureID
				c.Destination = fp.ArrivalID
				c.Route = fp.Route
				c.AircraftType = fp.AircraftID
			}
			if s := ic.ATCSession; s != nil {
				c.Frequency = strconv.FormatFloat(s.Frequency, 'f', 3, 64)
				c.Facility = FacilityFromIVAO(s.Position)
			}
			if ic.ATIS != nil {
				c.ATIS = strings.Join(ic.ATIS.Lines, "\n")
			}
			if kind == Observer {
				c.Facility = FacilityObserver
			}
			w.Clients = append(w.Clients, c)
		}
	}
	add(doc.Clients.Pilots, Pilot)
	add(doc.Clients.ATCs, ATC)
	add(doc.Clients.Observers, Observer)

	for _, s := range doc.Servers {
		w.Servers = append(w.Servers, Server{Ident: s.ID, Host: s.Hostname, Location: s.CountryID, Name: s.Description})
	}
	for _, s := range doc.VoiceServers {
		w.Servers = append(w.Servers, Server{Ident: s.ID, Host: s.Hostname, Location: s.CountryID, Name: s.Description, Voice: true})
	}
	return w, nil
}
