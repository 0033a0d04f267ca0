package whazzup

import (
	"encoding/json"
	"fmt"

	"github.com/skypies/geo"
)

type transceiverEntry struct {
	Callsign     string `json:"callsign"`
	Transceivers []struct {
		Frequency  int64   `json:"frequency"`
		LatDeg     float64 `json:"latDeg"`
		LonDeg     float64 `json:"lonDeg"`
		HeightMslM float64 `json:"heightMslM"`
	} `json:"transceivers"`
}

// ParseTransceivers reads the VATSIM transceiver list keyed by callsign.
func ParseTransceivers(text string) (map[string][]Transceiver, error) {
	var entries []transceiverEntry
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse transceivers: %w", err)
	}

	result := make(map[string][]Transceiver, len(entries))
	for _, e := range entries {
		for _, t := range e.Transceivers {
			result[e.Callsign] = append(result[e.Callsign], Transceiver{
				FrequencyHz: t.Frequency,
				Position:    geo.Latlong{Lat: t.LatDeg, Long: t.LonDeg},
				HeightMslM:  t.HeightMslM,
			})
		}
	}
	return result, nil
}

// AveragePosition returns the mean position of the transceivers.
func AveragePosition(transceivers []Transceiver) (geo.Latlong, bool) {
	if len(transceivers) == 0 {
		return geo.Latlong{}, false
	}
	var lat, lon float64
	for _, t := range transceivers {
		lat += t.Position.Lat
		lon += t.Position.Long
	}
	n := float64(len(transceivers))
	return geo.Latlong{Lat: lat / n, Long: lon / n}, true
}
