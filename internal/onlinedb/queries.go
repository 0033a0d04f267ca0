package onlinedb

import (
	"database/sql"
	"fmt"

	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

const clientColumns = `client_id, callsign, cid, name, kind, laty, lonx,
	altitude_ft, ground_speed_kts, heading, aircraft_type,
	departure, destination, route, transponder, server, logon_time`

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (whazzup.Client, error) {
	var (
		c                                  whazzup.Client
		kind                               int
		cid, name, aircraftType, departure sql.NullString
		destination, route, transponder    sql.NullString
		server                             sql.NullString
		altitude, speed, heading           sql.NullInt64
		logon                              sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Callsign, &cid, &name, &kind, &c.Position.Lat, &c.Position.Long,
		&altitude, &speed, &heading, &aircraftType,
		&departure, &destination, &route, &transponder, &server, &logon)
	if err != nil {
		return whazzup.Client{}, err
	}

	c.Kind = whazzup.ClientKind(kind)
	c.CID = cid.String
	c.Name = name.String
	c.AltitudeFt = int(altitude.Int64)
	c.GroundSpeedKts = int(speed.Int64)
	c.Heading = int(heading.Int64)
	c.AircraftType = aircraftType.String
	c.Departure = departure.String
	c.Destination = destination.String
	c.Route = route.String
	c.Transponder = transponder.String
	c.Server = server.String
	c.LogonTime = fromUnix(logon.Int64)
	return c, nil
}

func scanClients(rows *sql.Rows) ([]whazzup.Client, error) {
	defer rows.Close()

	var clients []whazzup.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// ClientCallsignAndPosMap returns the position of every stored pilot keyed
// by callsign.
func (m *Manager) ClientCallsignAndPosMap() map[string]geo.Latlong {
	ctx, cancel := queryContext()
	defer cancel()

	result := make(map[string]geo.Latlong)
	rows, err := m.db.QueryContext(ctx, `SELECT callsign, laty, lonx FROM client`)
	if err != nil {
		m.lg.Warn("Cannot read client positions", "error", err)
		return result
	}
	defer rows.Close()

	for rows.Next() {
		var callsign string
		var pos geo.Latlong
		if err := rows.Scan(&callsign, &pos.Lat, &pos.Long); err != nil {
			m.lg.Warn("Cannot scan client position", "error", err)
			continue
		}
		result[callsign] = pos
	}
	return result
}

// ClientRecordsByCallsign returns all pilots using callsign. The result is
// cached until the next accepted whazzup.
func (m *Manager) ClientRecordsByCallsign(callsign string) ([]whazzup.Client, error) {
	if clients, ok := m.byCallsign.Get(callsign); ok {
		return clients, nil
	}

	ctx, cancel := queryContext()
	defer cancel()

	rows, err := m.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM client WHERE callsign = $1 ORDER BY client_id`, callsign)
	if err != nil {
		return nil, fmt.Errorf("failed to query callsign %s: %w", callsign, err)
	}
	clients, err := scanClients(rows)
	if err != nil {
		return nil, err
	}

	m.byCallsign.Add(callsign, clients)
	return clients, nil
}

// ClientByID returns the pilot with the given row id or ErrNoClient.
func (m *Manager) ClientByID(id int64) (whazzup.Client, error) {
	if c, ok := m.byID.Get(id); ok {
		return c, nil
	}

	ctx, cancel := queryContext()
	defer cancel()

	c, err := scanClient(m.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM client WHERE client_id = $1`, id))
	if err == sql.ErrNoRows {
		return whazzup.Client{}, ErrNoClient
	} else if err != nil {
		return whazzup.Client{}, fmt.Errorf("failed to query client %d: %w", id, err)
	}

	m.byID.Add(id, c)
	return c, nil
}

// ClientsInRect returns up to limit pilots inside box. The box must not
// cross the antimeridian.
func (m *Manager) ClientsInRect(box geo.LatlongBox, limit int) ([]whazzup.Client, error) {
	ctx, cancel := queryContext()
	defer cancel()

	rows, err := m.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM client
		 WHERE laty >= $1 AND laty <= $2 AND lonx >= $3 AND lonx <= $4
		 ORDER BY client_id LIMIT $5`,
		box.SW.Lat, box.NE.Lat, box.SW.Long, box.NE.Long, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients in rect: %w", err)
	}
	return scanClients(rows)
}

// Atc returns all stored controllers and observers.
func (m *Manager) Atc() ([]whazzup.Client, error) {
	ctx, cancel := queryContext()
	defer cancel()

	rows, err := m.db.QueryContext(ctx,
		`SELECT atc_id, callsign, cid, name, kind, facility, frequency, laty, lonx,
		        radius_nm, visual_range_nm, server, logon_time, atis
		 FROM atc ORDER BY callsign`)
	if err != nil {
		return nil, fmt.Errorf("failed to query atc: %w", err)
	}
	defer rows.Close()

	var result []whazzup.Client
	for rows.Next() {
		var (
			c                             whazzup.Client
			kind, facility                int
			cid, name, freq, server, atis sql.NullString
			radius, visualRange, logon    sql.NullInt64
		)
		err := rows.Scan(&c.ID, &c.Callsign, &cid, &name, &kind, &facility, &freq,
			&c.Position.Lat, &c.Position.Long, &radius, &visualRange, &server, &logon, &atis)
		if err != nil {
			return nil, fmt.Errorf("failed to scan atc: %w", err)
		}
		c.Kind = whazzup.ClientKind(kind)
		c.Facility = whazzup.FacilityType(facility)
		c.CID = cid.String
		c.Name = name.String
		c.Frequency = freq.String
		c.RadiusNm = int(radius.Int64)
		c.VisualRangeNm = int(visualRange.Int64)
		c.Server = server.String
		c.LogonTime = fromUnix(logon.Int64)
		c.ATIS = atis.String
		result = append(result, c)
	}
	return result, rows.Err()
}

// Servers returns all stored network and voice servers.
func (m *Manager) Servers() ([]whazzup.Server, error) {
	ctx, cancel := queryContext()
	defer cancel()

	rows, err := m.db.QueryContext(ctx,
		`SELECT ident, host, location, name, voice FROM server ORDER BY server_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	var result []whazzup.Server
	for rows.Next() {
		var s whazzup.Server
		var ident, host, location, name sql.NullString
		var voice int
		if err := rows.Scan(&ident, &host, &location, &name, &voice); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		s.Ident, s.Host, s.Location, s.Name = ident.String, host.String, location.String, name.String
		s.Voice = voice != 0
		result = append(result, s)
	}
	return result, rows.Err()
}
