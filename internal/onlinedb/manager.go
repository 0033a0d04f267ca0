package onlinedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/log"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// ErrNoClient is returned when no stored client matches a lookup.
var ErrNoClient = errors.New("no online client found")

// queryTimeout bounds every store operation.
const queryTimeout = 30 * time.Second

// GeometryFunc returns the boundary of a controller position or nil.
type GeometryFunc func(callsign string, facility whazzup.FacilityType) []geo.Latlong

// Manager ingests downloaded payloads into the database and answers
// queries about the stored clients. It is safe for concurrent use.
type Manager struct {
	db *DB
	lg *log.Logger

	mu            sync.Mutex
	status        whazzup.Status
	transceivers  map[string][]whazzup.Transceiver
	reloadMinutes int
	lastUpdate    time.Time
	atcSize       map[whazzup.FacilityType]int
	geometry      GeometryFunc

	byID       *lru.Cache[int64, whazzup.Client]
	byCallsign *lru.Cache[string, []whazzup.Client]
}

// NewManager creates a manager on an initialized database. cacheSize is
// the number of entries of each lookup cache.
func NewManager(db *DB, cacheSize int, lg *log.Logger) (*Manager, error) {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	byID, err := lru.New[int64, whazzup.Client](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create client cache: %w", err)
	}
	byCallsign, err := lru.New[string, []whazzup.Client](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create callsign cache: %w", err)
	}

	return &Manager{
		db:         db,
		lg:         lg.With("component", "store"),
		atcSize:    make(map[whazzup.FacilityType]int),
		byID:       byID,
		byCallsign: byCallsign,
	}, nil
}

func queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}

// ReadFromStatus parses a status document and remembers its URLs. A
// broken document is logged and yields an empty status.
func (m *Manager) ReadFromStatus(text string) whazzup.Status {
	st, err := whazzup.ParseStatus(text)
	if err != nil {
		m.lg.Warn("Cannot read status document", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = st
	return st
}

// WhazzupURLFromStatus returns the whazzup URL of the last status document.
func (m *Manager) WhazzupURLFromStatus() (url string, gzipped bool, json bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.WhazzupURL, m.status.WhazzupGzipped, m.status.JSON
}

// VoiceURLFromStatus returns the server list URL of the last status document.
func (m *Manager) VoiceURLFromStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.VoiceURL
}

// MessageFromStatus returns the message of the last status document.
func (m *Manager) MessageFromStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.Message
}

// ReadFromTransceivers remembers transceiver positions for the next VATSIM
// JSON whazzup.
func (m *Manager) ReadFromTransceivers(text string) error {
	t, err := whazzup.ParseTransceivers(text)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transceivers = t
	return nil
}

// ReadFromWhazzup parses a whazzup document and replaces all stored clients
// and controllers. Documents not newer than previousUpdate are stale and
// rejected without touching the database.
func (m *Manager) ReadFromWhazzup(text string, format whazzup.Format, previousUpdate time.Time) (bool, error) {
	m.mu.Lock()
	transceivers := m.transceivers
	m.mu.Unlock()

	w, err := whazzup.Parse(text, format, transceivers)
	if err != nil {
		return false, err
	}

	if !w.Updated.After(previousUpdate) {
		m.lg.Debug("Whazzup is not newer than last update",
			"updated", w.Updated, "previous", previousUpdate)
		return false, nil
	}

	if err := m.replaceClients(w); err != nil {
		return false, err
	}

	m.mu.Lock()
	m.reloadMinutes = w.ReloadMinutes
	m.lastUpdate = w.Updated
	m.mu.Unlock()

	m.purgeCaches()
	return true, nil
}

// ReadServersFromWhazzup replaces the stored servers with the server list
// document. Only the text formats publish separate server lists.
func (m *Manager) ReadServersFromWhazzup(text string, format whazzup.Format, updateTime time.Time) error {
	if format.IsJSON() {
		return fmt.Errorf("format %s has no server list", format)
	}

	servers := whazzup.ParseServers(text)

	ctx, cancel := queryContext()
	defer cancel()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM server`); err != nil {
		return fmt.Errorf("failed to delete servers: %w", err)
	}
	if err := insertServers(ctx, tx, servers, updateTime); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) replaceClients(w *whazzup.Whazzup) error {
	m.mu.Lock()
	atcSize := make(map[whazzup.FacilityType]int, len(m.atcSize))
	for k, v := range m.atcSize {
		atcSize[k] = v
	}
	geometry := m.geometry
	m.mu.Unlock()

	ctx, cancel := queryContext()
	defer cancel()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"client", "atc", "server"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	clientStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO client (
			client_id, callsign, cid, name, kind, laty, lonx,
			altitude_ft, ground_speed_kts, heading, aircraft_type,
			departure, destination, route, transponder, server, logon_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)
	if err != nil {
		return fmt.Errorf("failed to prepare client insert: %w", err)
	}
	defer clientStmt.Close()

	atcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO atc (
			atc_id, callsign, cid, name, kind, facility, frequency, laty, lonx,
			radius_nm, visual_range_nm, server, logon_time, atis, boundary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`)
	if err != nil {
		return fmt.Errorf("failed to prepare atc insert: %w", err)
	}
	defer atcStmt.Close()

	var clientID, atcID int64
	for _, c := range w.Clients {
		if c.Kind == whazzup.Pilot {
			clientID++
			_, err = clientStmt.ExecContext(ctx,
				clientID, c.Callsign, c.CID, c.Name, int(c.Kind), c.Position.Lat, c.Position.Long,
				c.AltitudeFt, c.GroundSpeedKts, c.Heading, c.AircraftType,
				c.Departure, c.Destination, c.Route, c.Transponder, c.Server, unixOrZero(c.LogonTime))
			if err != nil {
				return fmt.Errorf("failed to insert client %s: %w", c.Callsign, err)
			}
			continue
		}

		atcID++
		radius := c.VisualRangeNm
		if size, ok := atcSize[c.Facility]; ok && size >= 1 {
			radius = size
		}

		var boundary sql.NullString
		if geometry != nil {
			if pts := geometry(c.Callsign, c.Facility); len(pts) > 0 {
				if data, err := json.Marshal(pts); err == nil {
					boundary = sql.NullString{String: string(data), Valid: true}
				}
			}
		}

		_, err = atcStmt.ExecContext(ctx,
			atcID, c.Callsign, c.CID, c.Name, int(c.Kind), int(c.Facility), c.Frequency,
			c.Position.Lat, c.Position.Long, radius, c.VisualRangeNm, c.Server,
			unixOrZero(c.LogonTime), c.ATIS, boundary)
		if err != nil {
			return fmt.Errorf("failed to insert atc %s: %w", c.Callsign, err)
		}
	}

	if err := insertServers(ctx, tx, w.Servers, w.Updated); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit whazzup: %w", err)
	}

	m.lg.Debug("Stored whazzup", "clients", clientID, "atc", atcID, "servers", len(w.Servers))
	return nil
}

func insertServers(ctx context.Context, tx *sql.Tx, servers []whazzup.Server, updated time.Time) error {
	for i, s := range servers {
		voice := 0
		if s.Voice {
			voice = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO server (server_id, ident, host, location, name, voice, last_update)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			int64(i+1), s.Ident, s.Host, s.Location, s.Name, voice, unixOrZero(updated))
		if err != nil {
			return fmt.Errorf("failed to insert server %s: %w", s.Ident, err)
		}
	}
	return nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// ReloadMinutesFromWhazzup returns the reload hint of the last accepted
// whazzup, 0 if none was given.
func (m *Manager) ReloadMinutesFromWhazzup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloadMinutes
}

// LastUpdateTimeFromWhazzup returns the embedded time of the last accepted
// whazzup.
func (m *Manager) LastUpdateTimeFromWhazzup() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

// SetAtcSize sets the displayed radius per facility type used for
// controllers stored from now on.
func (m *Manager) SetAtcSize(sizes map[whazzup.FacilityType]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atcSize = make(map[whazzup.FacilityType]int, len(sizes))
	for k, v := range sizes {
		m.atcSize[k] = v
	}
}

// SetGeometryCallback sets the boundary lookup for controllers.
func (m *Manager) SetGeometryCallback(fn GeometryFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry = fn
}

// ResetForNewOptions forgets everything learned from earlier downloads.
func (m *Manager) ResetForNewOptions() {
	m.mu.Lock()
	m.status = whazzup.Status{}
	m.transceivers = nil
	m.reloadMinutes = 0
	m.lastUpdate = time.Time{}
	m.mu.Unlock()

	m.purgeCaches()
}

// ClearData deletes all stored rows.
func (m *Manager) ClearData() error {
	ctx, cancel := queryContext()
	defer cancel()

	for _, table := range []string{"client", "atc", "server"} {
		if _, err := m.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	m.purgeCaches()
	return nil
}

func (m *Manager) purgeCaches() {
	m.byID.Purge()
	m.byCallsign.Purge()
}

// HasData reports whether any client or controller is stored.
func (m *Manager) HasData() bool {
	ctx, cancel := queryContext()
	defer cancel()

	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM client) + (SELECT COUNT(*) FROM atc)`).Scan(&n)
	if err != nil {
		m.lg.Warn("Cannot count online data", "error", err)
		return false
	}
	return n > 0
}

// NumClients returns the number of stored pilots.
func (m *Manager) NumClients() int {
	ctx, cancel := queryContext()
	defer cancel()

	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM client`).Scan(&n); err != nil {
		m.lg.Warn("Cannot count online clients", "error", err)
		return 0
	}
	return n
}

// Healthy reports whether the database answers queries.
func (m *Manager) Healthy() bool {
	return HealthCheck(m.db)
}

// TableCounts returns the number of rows per table.
func (m *Manager) TableCounts(ctx context.Context) (map[string]int, error) {
	return m.db.Stats(ctx)
}
