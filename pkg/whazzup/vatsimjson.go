package whazzup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skypies/geo"
)

type vatsimGeneral struct {
	Version         int     `json:"version"`
	Reload          float64 `json:"reload"`
	Update          string  `json:"update"`
	UpdateTimestamp string  `json:"update_timestamp"`
}

type vatsimPilot struct {
	CID         int       `json:"cid"`
	Name        string    `json:"name"`
	Callsign    string    `json:"callsign"`
	Server      string    `json:"server"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    int       `json:"altitude"`
	Groundspeed int       `json:"groundspeed"`
	Transponder string    `json:"transponder"`
	Heading     int       `json:"heading"`
	Logon       time.Time `json:"logon_time"`
	FlightPlan  *struct {
		Aircraft      string `json:"aircraft"`
		AircraftShort string `json:"aircraft_short"`
		Departure     string `json:"departure"`
		Arrival       string `json:"arrival"`
		Route         string `json:"route"`
	} `json:"flight_plan"`
}

type vatsimController struct {
	CID       int       `json:"cid"`
	Name      string    `json:"name"`
	Callsign  string    `json:"callsign"`
	Frequency string    `json:"frequency"`
	Facility  int       `json:"facility"`
	Server    string    `json:"server"`
	Range     int       `json:"visual_range"`
	ATIS      []string  `json:"text_atis"`
	Logon     time.Time `json:"logon_time"`
}

type vatsimServer struct {
	Ident    string `json:"ident"`
	Hostname string `json:"hostname_or_ip"`
	Location string `json:"location"`
	Name     string `json:"name"`
}

type vatsimData struct {
	General     vatsimGeneral      `json:"general"`
	Pilots      []vatsimPilot      `json:"pilots"`
	Controllers []vatsimController `json:"controllers"`
	ATIS        []vatsimController `json:"atis"`
	Servers     []vatsimServer     `json:"servers"`
}

// ParseVATSIMJSON reads a VATSIM JSON v3 data document. Controllers carry
// no position in this format; they are placed at the average position of
// their transceivers and dropped if none are known.
func ParseVATSIMJSON(text string, transceivers map[string][]Transceiver) (*Whazzup, error) {
	var doc vatsimData
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse VATSIM JSON: %w", err)
	}

	w := &Whazzup{ReloadMinutes: int(doc.General.Reload)}
	if t, err := time.Parse(time.RFC3339Nano, doc.General.UpdateTimestamp); err == nil {
		w.Updated = t.UTC()
	} else if t, err := time.Parse(textTimeLayout, doc.General.Update); err == nil {
		w.Updated = t.UTC()
	} else {
		return nil, fmt.Errorf("VATSIM JSON has no update time")
	}

	for _, p := range doc.Pilots {
		c := Client{
			Callsign:       p.Callsign,
			CID:            strconv.Itoa(p.CID),
			Name:           p.Name,
			Kind:           Pilot,
			Position:       geo.Latlong{Lat: p.Latitude, Long: p.Longitude},
			AltitudeFt:     p.Altitude,
			GroundSpeedKts: p.Groundspeed,
			Heading:        p.Heading,
			Transponder:    p.Transponder,
			Server:         p.Server,
			LogonTime:      p.Logon.UTC(),
		}
		if fp := p.FlightPlan; fp != nil {
			c.AircraftType = fp.AircraftShort
			if c.AircraftType == "" {
				c.AircraftType = fp.Aircraft
			}
			c.Departure = fp.Departure
			c.Destination = fp.Arrival
			c.Route = fp.Route
		}
		w.Clients = append(w.Clients, c)
	}

	for _, list := range [][]vatsimController{doc.Controllers, doc.ATIS} {
		for _, ctl := range list {
			pos, ok := AveragePosition(transceivers[ctl.Callsign])
			if !ok {
				continue
			}
			c := Client{
				Callsign:      ctl.Callsign,
				CID:           strconv.Itoa(ctl.CID),
				Name:          ctl.Name,
				Kind:          ATC,
				Position:      pos,
				Frequency:     ctl.Frequency,
				Facility:      FacilityFromCode(ctl.Facility),
				VisualRangeNm: ctl.Range,
				Server:        ctl.Server,
				LogonTime:     ctl.Logon.UTC(),
				ATIS:          strings.Join(ctl.ATIS, "\n"),
			}
			if c.Facility == FacilityObserver {
				c.Kind = Observer
			}
			w.Clients = append(w.Clients, c)
		}
	}

	for _, s := range doc.Servers {
		w.Servers = append(w.Servers, Server{
			Ident:    s.Ident,
			Host:     s.Hostname,
			Location: s.Location,
			Name:     s.Name,
		})
	}
	return w, nil
}
