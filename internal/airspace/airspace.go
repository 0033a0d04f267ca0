// Package airspace loads controller boundaries from a JSON file.
//
// The file has two sections. "centers" holds boundaries of the navigation
// data keyed by airspace name, "user" holds boundaries keyed by the exact
// controller callsign:
//
//	{
//	  "centers": {"EDGG": [[50.5, 6.0], [50.5, 10.0], [49.0, 10.0]]},
//	  "user":    {"EDDF_APP": [[50.2, 8.3], [50.2, 8.8], [49.9, 8.8]]}
//	}
//
// Points are [latitude, longitude] pairs.
package airspace

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

type boundary [][2]float64

func (b boundary) latlongs() []geo.Latlong {
	result := make([]geo.Latlong, 0, len(b))
	for _, p := range b {
		result = append(result, geo.Latlong{Lat: p[0], Long: p[1]})
	}
	return result
}

type document struct {
	Centers map[string]boundary `json:"centers"`
	User    map[string]boundary `json:"user"`
}

// FileSource serves boundaries from a file. It can be reloaded while the
// controller uses it.
type FileSource struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// Load reads the boundary file at path.
func Load(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reads the file again.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read airspace file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse airspace file: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// ByName looks up a boundary by the airspace name derived from the
// callsign. Only center and flight information positions have one.
func (s *FileSource) ByName(callsign string, facility whazzup.FacilityType) []geo.Latlong {
	if facility != whazzup.FacilityACC && facility != whazzup.FacilityFlightInformation {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.doc.Centers[callsign]; ok {
		return b.latlongs()
	}
	// EDGG_E_CTR -> EDGG
	name, _, found := strings.Cut(callsign, "_")
	if !found {
		return nil
	}
	if b, ok := s.doc.Centers[name]; ok {
		return b.latlongs()
	}
	return nil
}

// ByFile looks up a user boundary by the exact callsign.
func (s *FileSource) ByFile(callsign string) []geo.Latlong {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.doc.User[callsign]; ok {
		return b.latlongs()
	}
	return nil
}
