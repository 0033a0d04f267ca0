package main

import (
	"sync"

	"github.com/unklstewy/navmap-online/internal/online"
)

// SimulatorState is the simulator traffic as pushed by a simulator bridge.
type SimulatorState struct {
	Connected bool              `json:"connected"`
	User      online.Aircraft   `json:"user"`
	AI        []online.Aircraft `json:"ai"`
}

// remoteSimulator implements online.Simulator from the last pushed state.
type remoteSimulator struct {
	mu    sync.RWMutex
	state SimulatorState
}

func (s *remoteSimulator) Set(state SimulatorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *remoteSimulator) State() SimulatorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.state
	state.AI = append([]online.Aircraft(nil), s.state.AI...)
	return state
}

func (s *remoteSimulator) UserAircraft() online.Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

func (s *remoteSimulator) AIAircraft() []online.Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]online.Aircraft(nil), s.state.AI...)
}

func (s *remoteSimulator) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Connected
}

// find returns the simulator aircraft with the registration.
func (s *remoteSimulator) find(registration string) (online.Aircraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.User.Registration == registration {
		return s.state.User, true
	}
	for _, ac := range s.state.AI {
		if ac.Registration == registration {
			return ac, true
		}
	}
	return online.Aircraft{}, false
}

// all returns the user aircraft followed by the AI traffic.
func (s *remoteSimulator) all() []online.Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]online.Aircraft, 0, len(s.state.AI)+1)
	if s.state.User.Registration != "" {
		result = append(result, s.state.User)
	}
	return append(result, s.state.AI...)
}
