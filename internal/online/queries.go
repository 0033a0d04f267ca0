package online

import (
	"time"

	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/coordinates"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// GetAircraft returns the online aircraft in box and whether the result was
// truncated. Lazy queries return the cached list without touching the
// store.
func (c *Controller) GetAircraft(box geo.LatlongBox, layer *Layer, lazy bool) ([]Aircraft, bool) {
	var (
		list     []Aircraft
		overflow bool
	)
	c.Call(func() { list, overflow = c.getAircraft(box, layer, lazy) })
	return list, overflow
}

func (c *Controller) getAircraft(box geo.LatlongBox, layer *Layer, lazy bool) ([]Aircraft, bool) {
	c.cache.update(box, layer, lazy)

	current := c.currentRegistrations()
	if !sameKeys(c.simRegistrations, current) {
		// Simulator traffic changed and may hide other online clients now
		c.cache.clear()
	}

	if len(c.cache.list) == 0 && !lazy {
		var list []Aircraft
		query := coordinates.Inflate(box, queryRectInflationFactor, queryRectInflationIncrement)
		for _, part := range coordinates.SplitAtAntimeridian(query) {
			clients, err := c.mgr.ClientsInRect(part, queryMaxRows+1)
			if err != nil {
				c.lg.Warn("Cannot query online aircraft", "error", err)
				continue
			}
			for _, client := range clients {
				list = append(list, AircraftFromClient(client))
			}
		}

		c.cache.fill(box, layer, filterDuplicates(list, current))
		c.simRegistrations = current
	}

	overflow := c.cache.validate(queryMaxRows)
	return c.cache.snapshot(), overflow
}

// currentRegistrations collects the positions of the user aircraft and,
// when connected, of the simulator AI traffic.
func (c *Controller) currentRegistrations() map[string]geo.Latlong {
	regs := make(map[string]geo.Latlong)
	if c.sim == nil {
		return regs
	}

	user := c.sim.UserAircraft()
	regs[user.Registration] = user.Position

	if c.sim.IsConnected() || c.cfg.Simulator.DebugUserAircraft {
		for _, ac := range c.sim.AIAircraft() {
			regs[ac.Registration] = ac.Position
		}
	}
	delete(regs, "")
	return regs
}

// AircraftFromCache returns the result of the last aircraft query.
func (c *Controller) AircraftFromCache() []Aircraft {
	var list []Aircraft
	c.Call(func() { list = c.cache.snapshot() })
	return list
}

// IsShadowAircraft reports whether a simulator aircraft represents an
// online client.
func (c *Controller) IsShadowAircraft(sim Aircraft) bool {
	var shadow bool
	c.Call(func() { shadow = c.isShadowAircraft(sim) })
	return shadow
}

func (c *Controller) isShadowAircraft(sim Aircraft) bool {
	if sim.OnlineShadow {
		return true
	}
	pos, ok := c.clientPositions[sim.Registration]
	return ok && isDuplicate(pos, sim.Position)
}

// GetShadowAircraft returns the online client shadowed by a simulator
// aircraft, placed at the simulator position. It returns false if sim is
// no shadow or the client is gone from the store.
func (c *Controller) GetShadowAircraft(sim Aircraft) (Aircraft, bool) {
	var (
		result Aircraft
		found  bool
	)
	c.Call(func() {
		if !c.isShadowAircraft(sim) {
			return
		}

		clients, err := c.mgr.ClientRecordsByCallsign(sim.Registration)
		if err != nil || len(clients) == 0 {
			c.lg.Warn("No client found for shadow aircraft", "registration", sim.Registration, "error", err)
			return
		}

		result = AircraftFromClient(clients[0])
		// The simulator position is more recent
		result.Position = sim.Position
		result.AltitudeFt = sim.AltitudeFt
		found = true
	})
	return result, found
}

// FilterOnlineShadowAircraft removes online aircraft that are shown as
// shadow aircraft by the simulator.
func (c *Controller) FilterOnlineShadowAircraft(online, sim []Aircraft) []Aircraft {
	result := make([]Aircraft, len(online))
	copy(result, online)

	c.Call(func() {
		shadows := make(map[string]geo.Latlong)
		for _, ac := range sim {
			if !ac.OnlineShadow || ac.Registration == "" {
				continue
			}
			if _, ok := c.simRegistrations[ac.Registration]; ok {
				shadows[ac.Registration] = ac.Position
			}
		}
		result = filterDuplicates(result, shadows)
	})
	return result
}

// ClientAircraftByID returns the online client with the store id.
func (c *Controller) ClientAircraftByID(id int64) (Aircraft, error) {
	client, err := c.mgr.ClientByID(id)
	if err != nil {
		return Aircraft{}, err
	}
	return AircraftFromClient(client), nil
}

// ClientRecordByID returns the full stored record of an online client.
func (c *Controller) ClientRecordByID(id int64) (whazzup.Client, error) {
	return c.mgr.ClientByID(id)
}

// HasData reports whether the store holds any clients.
func (c *Controller) HasData() bool {
	return c.mgr.HasData()
}

// NumClients returns the number of stored pilots.
func (c *Controller) NumClients() int {
	return c.mgr.NumClients()
}

// State returns the current stage of the download chain.
func (c *Controller) State() State {
	var s State
	c.Call(func() { s = c.state })
	return s
}

// StatusText is "Connected to <network>." or empty.
func (c *Controller) StatusText() string {
	var text string
	c.Call(func() { text = c.statusText })
	return text
}

// Network returns the name of the selected network, empty for none.
func (c *Controller) Network() string {
	var name string
	c.Call(func() { name = networkName(c.network.Name) })
	return name
}

// NetworkTranslated returns the display name of the selected network.
func (c *Controller) NetworkTranslated() string {
	var name string
	c.Call(func() { name = c.networkTranslated() })
	return name
}

func (c *Controller) networkTranslated() string {
	return networkDisplayNames[c.network.Name]
}

// IsNetworkActive reports whether a network is selected.
func (c *Controller) IsNetworkActive() bool {
	var active bool
	c.Call(func() { active = c.network.Name != config.NetworkNone })
	return active
}

// Info is a summary of the session for status displays.
type Info struct {
	Network    string    `json:"network"`
	State      string    `json:"state"`
	StatusText string    `json:"status_text"`
	LastUpdate time.Time `json:"last_update"`
	Active     bool      `json:"active"`
}

// Info returns the session summary.
func (c *Controller) Info() Info {
	var info Info
	c.Call(func() {
		info = Info{
			Network:    c.networkTranslated(),
			State:      c.state.String(),
			StatusText: c.statusText,
			LastUpdate: c.lastUpdate,
			Active:     c.network.Name != config.NetworkNone,
		}
	})
	return info
}

// Names used in user agents and logs.
var networkNames = map[string]string{
	config.NetworkVATSIM:       "VATSIM",
	config.NetworkIVAO:         "IVAO",
	config.NetworkPilotEdge:    "PilotEdge",
	config.NetworkCustom:       "Custom Network",
	config.NetworkCustomStatus: "Custom Network",
}

// Names shown to the user.
var networkDisplayNames = map[string]string{
	config.NetworkVATSIM:       "VATSIM",
	config.NetworkIVAO:         "IVAO",
	config.NetworkPilotEdge:    "PilotEdge",
	config.NetworkCustom:       "Custom Network",
	config.NetworkCustomStatus: "Custom Network",
}

func networkName(name string) string {
	return networkNames[name]
}
