package online

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/internal/onlinedb"
	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/download"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// fakeDownloader records requests. Completions are sent by the test.
type fakeDownloader struct {
	mu          sync.Mutex
	events      chan download.Event
	starts      chan string
	url         string
	downloading bool
	cancels     int
	encoding    string
	userAgent   string
	ignoreSSL   bool
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{
		events: make(chan download.Event),
		starts: make(chan string, 16),
	}
}

func (d *fakeDownloader) Events() <-chan download.Event { return d.events }

func (d *fakeDownloader) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

func (d *fakeDownloader) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *fakeDownloader) StartDownload() {
	d.mu.Lock()
	d.downloading = true
	url := d.url
	d.mu.Unlock()
	d.starts <- url
}

func (d *fakeDownloader) CancelDownload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.downloading = false
	d.cancels++
}

func (d *fakeDownloader) IsDownloading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.downloading
}

func (d *fakeDownloader) SetAcceptEncoding(encoding string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encoding = encoding
}

func (d *fakeDownloader) SetDefaultUserAgentShort(suffix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userAgent = suffix
}

func (d *fakeDownloader) SetIgnoreSslErrors(ignore bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ignoreSSL = ignore
}

func (d *fakeDownloader) send(t *testing.T, ev download.Event) {
	t.Helper()

	d.mu.Lock()
	d.downloading = false
	if ev.URL == "" {
		ev.URL = d.url
	}
	d.mu.Unlock()

	select {
	case d.events <- ev:
	case <-time.After(2 * time.Second):
		t.Fatalf("Controller did not receive %s event", ev.Kind)
	}
}

func (d *fakeDownloader) finish(t *testing.T, body string) {
	t.Helper()
	d.send(t, download.Event{Kind: download.Finished, Data: []byte(body)})
}

// fakeManager keeps just enough state to drive the controller. A whazzup
// is accepted if whazzupUpdate is after the previous update.
type fakeManager struct {
	mu sync.Mutex

	nextStatus    whazzup.Status
	status        whazzup.Status
	whazzupUpdate time.Time
	lastUpdate    time.Time
	reload        int
	whazzupErr    error
	positions     map[string]geo.Latlong
	rectClients   []whazzup.Client
	byCallsign    map[string][]whazzup.Client
	byID          map[int64]whazzup.Client

	atcSize      map[whazzup.FacilityType]int
	geometry     onlinedb.GeometryFunc
	whazzupReads int
	serverReads  int
	transceivers int
	rectQueries  int
	cleared      int
	resets       int
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		positions:  make(map[string]geo.Latlong),
		byCallsign: make(map[string][]whazzup.Client),
		byID:       make(map[int64]whazzup.Client),
	}
}

func (m *fakeManager) ReadFromStatus(text string) whazzup.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = m.nextStatus
	return m.status
}

func (m *fakeManager) ReadFromTransceivers(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transceivers++
	return nil
}

func (m *fakeManager) ReadFromWhazzup(text string, format whazzup.Format, previousUpdate time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whazzupReads++
	if m.whazzupErr != nil {
		return false, m.whazzupErr
	}
	if !m.whazzupUpdate.After(previousUpdate) {
		return false, nil
	}
	m.lastUpdate = m.whazzupUpdate
	return true, nil
}

func (m *fakeManager) ReadServersFromWhazzup(text string, format whazzup.Format, updateTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverReads++
	return nil
}

func (m *fakeManager) WhazzupURLFromStatus() (string, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.WhazzupURL, m.status.WhazzupGzipped, m.status.JSON
}

func (m *fakeManager) VoiceURLFromStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.VoiceURL
}

func (m *fakeManager) MessageFromStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.Message
}

func (m *fakeManager) ReloadMinutesFromWhazzup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reload
}

func (m *fakeManager) LastUpdateTimeFromWhazzup() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

func (m *fakeManager) ClientCallsignAndPosMap() map[string]geo.Latlong {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]geo.Latlong, len(m.positions))
	for k, v := range m.positions {
		result[k] = v
	}
	return result
}

func (m *fakeManager) ClientRecordsByCallsign(callsign string) ([]whazzup.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byCallsign[callsign], nil
}

func (m *fakeManager) ClientByID(id int64) (whazzup.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return whazzup.Client{}, onlinedb.ErrNoClient
	}
	return c, nil
}

func (m *fakeManager) ClientsInRect(box geo.LatlongBox, limit int) ([]whazzup.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rectQueries++

	var result []whazzup.Client
	for _, c := range m.rectClients {
		if box.Contains(c.Position) && len(result) < limit {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *fakeManager) SetAtcSize(sizes map[whazzup.FacilityType]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atcSize = sizes
}

func (m *fakeManager) SetGeometryCallback(fn onlinedb.GeometryFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry = fn
}

func (m *fakeManager) ResetForNewOptions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.status = whazzup.Status{}
	m.lastUpdate = time.Time{}
	m.reload = 0
}

func (m *fakeManager) ClearData() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	return nil
}

func (m *fakeManager) HasData() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.lastUpdate.IsZero()
}

func (m *fakeManager) NumClients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rectClients)
}

func (m *fakeManager) counts() (whazzupReads, serverReads, rectQueries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.whazzupReads, m.serverReads, m.rectQueries
}

// fakeListener records notifications as short strings.
type fakeListener struct {
	mu     sync.Mutex
	events []string
}

func (l *fakeListener) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *fakeListener) OnlineServersUpdated(loadAll, keepSelection bool) { l.add("servers") }

func (l *fakeListener) OnlineClientAndAtcUpdated(loadAll, keepSelection bool) { l.add("clients") }

func (l *fakeListener) OnlineNetworkChanged() { l.add("network") }

func (l *fakeListener) StatusMessage(title, text string) { l.add("status:" + title + "|" + text) }

func (l *fakeListener) StatusFileMessage(text string) { l.add("file:" + text) }

func (l *fakeListener) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.events
	l.events = nil
	return events
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// active returns the running timers with duration d.
func (c *fakeClock) active(d time.Duration) []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && t.d == d {
			result = append(result, t)
		}
	}
	return result
}

// activeAll returns all running timers.
func (c *fakeClock) activeAll() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			result = append(result, t)
		}
	}
	return result
}

// fire runs the timer callback like an expiring timer.
func (t *fakeTimer) fire() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
	t.f()
}

type fakeSimulator struct {
	mu        sync.Mutex
	user      Aircraft
	ai        []Aircraft
	connected bool
}

func (s *fakeSimulator) UserAircraft() Aircraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *fakeSimulator) AIAircraft() []Aircraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Aircraft(nil), s.ai...)
}

func (s *fakeSimulator) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type fakeDecider struct {
	accept, remember bool
	calls            chan string
}

func (d *fakeDecider) Decide(url string, errors []string) (bool, bool) {
	d.calls <- url
	return d.accept, d.remember
}

type fakeAirspaces struct {
	byName map[string][]geo.Latlong
	byFile map[string][]geo.Latlong
}

func (a *fakeAirspaces) ByName(callsign string, facility whazzup.FacilityType) []geo.Latlong {
	return a.byName[callsign]
}

func (a *fakeAirspaces) ByFile(callsign string) []geo.Latlong {
	return a.byFile[callsign]
}

// harness runs a controller with fakes.
type harness struct {
	c   *Controller
	dl  *fakeDownloader
	mgr *fakeManager
	lst *fakeListener
	clk *fakeClock
	sim *fakeSimulator
}

func newHarness(t *testing.T, cfg *config.Config, modify ...func(*Options)) *harness {
	t.Helper()

	h := &harness{
		dl:  newFakeDownloader(),
		mgr: newFakeManager(),
		lst: &fakeListener{},
		clk: newFakeClock(),
		sim: &fakeSimulator{},
	}

	opts := Options{
		Config:     cfg,
		Downloader: h.dl,
		Manager:    h.mgr,
		Listener:   h.lst,
		Simulator:  h.sim,
		Clock:      h.clk,
	}
	for _, m := range modify {
		m(&opts)
	}

	c, err := New(opts)
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	h.c = c

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	return h
}

// expectStart waits for the next download start and returns its URL.
func (h *harness) expectStart(t *testing.T) string {
	t.Helper()
	select {
	case url := <-h.dl.starts:
		return url
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a download to start")
		return ""
	}
}

// expectNoStart fails if a download was started. The call round trip
// makes sure deferred work has run.
func (h *harness) expectNoStart(t *testing.T) {
	t.Helper()
	h.c.Call(func() {})
	select {
	case url := <-h.dl.starts:
		t.Fatalf("Expected no download, got %s", url)
	default:
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func customStatusConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Online.Network = config.NetworkCustomStatus
	cfg.Online.Format = config.FormatVATSIM
	cfg.Online.StatusURL = "http://net.example/status.txt"
	cfg.Online.ReloadSeconds = 120
	return cfg
}

func vatsimConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Online.Network = config.NetworkVATSIM
	return cfg
}
