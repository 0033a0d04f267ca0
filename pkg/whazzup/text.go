package whazzup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skypies/geo"
)

// Layout of UPDATE and logon times in the text formats.
const textTimeLayout = "20060102150405"

// Section names of the text formats.
const (
	sectionGeneral      = "!GENERAL"
	sectionClients      = "!CLIENTS"
	sectionServers      = "!SERVERS"
	sectionVoiceServers = "!VOICE SERVERS"
)

// Field positions of a client line. VATSIM and IVAO share the first
// columns and differ in where the heading is.
const (
	fieldCallsign      = 0
	fieldCID           = 1
	fieldName          = 2
	fieldClientType    = 3
	fieldFrequency     = 4
	fieldLatitude      = 5
	fieldLongitude     = 6
	fieldAltitude      = 7
	fieldGroundSpeed   = 8
	fieldAircraft      = 9
	fieldDeparture     = 11
	fieldDestination   = 13
	fieldServer        = 14
	fieldTransponder   = 17
	fieldFacility      = 18
	fieldVisualRange   = 19
	fieldRoute         = 30
	fieldATIS          = 35
	fieldLogonTime     = 37
	fieldHeadingVATSIM = 38
	fieldHeadingIVAO   = 45
)

// ParseText reads a whazzup document in one of the colon separated text
// formats. Unknown sections are skipped and malformed client lines are
// ignored.
func ParseText(text string, format Format) (*Whazzup, error) {
	if format != VATSIM && format != IVAO {
		return nil, fmt.Errorf("format %s is not a text format", format)
	}

	w := &Whazzup{}
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			section = sectionName(line)
			continue
		}

		switch section {
		case sectionGeneral:
			parseGeneral(w, line)
		case sectionClients:
			if c, ok := parseClient(line, format); ok {
				w.Clients = append(w.Clients, c)
			}
		case sectionServers:
			if s, ok := parseServer(line); ok {
				w.Servers = append(w.Servers, s)
			}
		case sectionVoiceServers:
			if s, ok := parseVoiceServer(line); ok {
				w.Servers = append(w.Servers, s)
			}
		}
	}

	if w.Updated.IsZero() {
		return nil, fmt.Errorf("whazzup document has no UPDATE time")
	}
	return w, nil
}

// ParseServers reads only the server sections of a text document. Server
// lists have no UPDATE line so no time is required.
func ParseServers(text string) []Server {
	var servers []Server
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			section = sectionName(line)
			continue
		}

		switch section {
		case sectionServers:
			if s, ok := parseServer(line); ok {
				servers = append(servers, s)
			}
		case sectionVoiceServers:
			if s, ok := parseVoiceServer(line); ok {
				servers = append(servers, s)
			}
		}
	}
	return servers
}

// sectionName normalizes "!CLIENTS:" to "!CLIENTS".
func sectionName(line string) string {
	return strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(line)), ":")
}

func parseGeneral(w *Whazzup, line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)

	switch strings.ToUpper(strings.TrimSpace(key)) {
	case "RELOAD":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			w.ReloadMinutes = int(v)
		}
	case "UPDATE":
		if t, err := time.Parse(textTimeLayout, value); err == nil {
			w.Updated = t.UTC()
		}
	}
}

func parseClient(line string, format Format) (Client, bool) {
	f := strings.Split(line, ":")
	if len(f) <= fieldVisualRange || f[fieldCallsign] == "" {
		return Client{}, false
	}

	lat, errLat := strconv.ParseFloat(field(f, fieldLatitude), 64)
	lon, errLon := strconv.ParseFloat(field(f, fieldLongitude), 64)
	if errLat != nil || errLon != nil {
		return Client{}, false
	}

	c := Client{
		Callsign:       f[fieldCallsign],
		CID:            field(f, fieldCID),
		Name:           field(f, fieldName),
		Frequency:      field(f, fieldFrequency),
		Position:       geo.Latlong{Lat: lat, Long: lon},
		AltitudeFt:     atoi(field(f, fieldAltitude)),
		GroundSpeedKts: atoi(field(f, fieldGroundSpeed)),
		AircraftType:   field(f, fieldAircraft),
		Departure:      field(f, fieldDeparture),
		Destination:    field(f, fieldDestination),
		Server:         field(f, fieldServer),
		Transponder:    field(f, fieldTransponder),
		VisualRangeNm:  atoi(field(f, fieldVisualRange)),
		Route:          field(f, fieldRoute),
	}

	if t, err := time.Parse(textTimeLayout, field(f, fieldLogonTime)); err == nil {
		c.LogonTime = t.UTC()
	}

	if format == IVAO {
		c.Heading = atoi(field(f, fieldHeadingIVAO))
	} else {
		c.Heading = atoi(field(f, fieldHeadingVATSIM))
	}

	switch strings.ToUpper(field(f, fieldClientType)) {
	case "ATC":
		c.Kind = ATC
		c.Facility = FacilityFromCode(atoiDefault(field(f, fieldFacility), -1))
		if c.Facility == FacilityObserver || strings.HasSuffix(strings.ToUpper(c.Callsign), "_OBS") {
			c.Kind = Observer
			c.Facility = FacilityObserver
		}
		// ATIS lines are separated by a caret and a section sign
		c.ATIS = strings.ReplaceAll(field(f, fieldATIS), "^§", "\n")
	case "PILOT":
		c.Kind = Pilot
	default:
		return Client{}, false
	}
	return c, true
}

// parseServer reads ident:host:location:name:allowed
func parseServer(line string) (Server, bool) {
	f := strings.Split(line, ":")
	if len(f) < 4 || f[0] == "" {
		return Server{}, false
	}
	return Server{Ident: f[0], Host: f[1], Location: f[2], Name: f[3]}, true
}

// parseVoiceServer reads host:location:name:allowed:type
func parseVoiceServer(line string) (Server, bool) {
	f := strings.Split(line, ":")
	if len(f) < 3 || f[0] == "" {
		return Server{}, false
	}
	return Server{Ident: f[0], Host: f[0], Location: f[1], Name: f[2], Voice: true}, true
}

func field(f []string, i int) string {
	if i < len(f) {
		return strings.TrimSpace(f[i])
	}
	return ""
}

func atoi(s string) int {
	return atoiDefault(s, 0)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v)
	}
	return def
}
