// Package online keeps the application connected to an online flight
// network. A Controller downloads the status, transceiver, whazzup and
// server documents of the selected network in a chain, hands them to the
// store and answers aircraft queries with online clients that are not
// already shown as simulator traffic.
package online

import (
	"context"
	"fmt"
	"time"

	"github.com/brunoga/deep"
	"github.com/google/uuid"
	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/download"
	"github.com/unklstewy/navmap-online/pkg/log"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

const (
	// minReloadSeconds is the shortest re-poll interval
	minReloadSeconds = 15

	// minAutoReloadSeconds is the shortest interval derived from a whazzup
	minAutoReloadSeconds = 60

	minServerDownloadInterval = 15 * time.Minute
	defaultTransceiverReload  = 5 * time.Minute
	failureRetryDelay         = 3 * time.Minute
)

// Options configures a Controller.
type Options struct {
	Config     *config.Config
	Downloader Downloader
	Manager    Manager

	// Optional collaborators
	Listener   Listener
	Simulator  Simulator
	Airspaces  AirspaceSource
	SSLDecider SSLDecider

	// RememberSSL persists the decision to ignore certificate errors
	RememberSSL func()

	// Clock defaults to the system clock
	Clock  Clock
	Logger *log.Logger
}

type timerKind int

const (
	timerReload timerKind = iota
	timerRetry
)

type timerEvent struct {
	kind timerKind
	gen  uint64
}

type sslAnswer struct {
	chain    uint64
	url      string
	errors   []string
	accept   bool
	remember bool
}

type call struct {
	fn   func()
	done chan struct{}
}

// Controller runs the download chain of one online network session. All
// session state is owned by the goroutine executing Run. Other goroutines
// use the exported methods which are executed on that goroutine.
type Controller struct {
	dl          Downloader
	mgr         Manager
	listener    Listener
	sim         Simulator
	airspaces   AirspaceSource
	ssl         SSLDecider
	rememberSSL func()
	clock       Clock
	lg          *log.Logger
	clg         *log.Logger

	cfg     config.Config
	network config.Network
	format  whazzup.Format

	state                  State
	whazzupURLFromStatus   string
	lastUpdate             time.Time
	lastUpdateTransceivers time.Time
	lastServerDownload     time.Time
	clientPositions        map[string]geo.Latlong
	cache                  aircraftCache
	simRegistrations       map[string]geo.Latlong
	atcSizes               map[whazzup.FacilityType]int
	statusText             string
	cycle                  string

	// chain changes whenever a download chain is aborted
	chain   uint64
	pending []func()

	reloadTimer Timer
	reloadGen   uint64
	retryTimer  Timer
	retryGen    uint64

	calls      chan call
	timers     chan timerEvent
	sslAnswers chan sslAnswer
	done       chan struct{}
}

// New creates a controller. Nothing is downloaded before Run and
// StartProcessing are called.
func New(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("controller needs a configuration")
	}
	if opts.Downloader == nil || opts.Manager == nil {
		return nil, fmt.Errorf("controller needs a downloader and a manager")
	}
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	c := &Controller{
		dl:               opts.Downloader,
		mgr:              opts.Manager,
		listener:         opts.Listener,
		sim:              opts.Simulator,
		airspaces:        opts.Airspaces,
		ssl:              opts.SSLDecider,
		rememberSSL:      opts.RememberSSL,
		clock:            opts.Clock,
		lg:               opts.Logger.With("component", "online"),
		clg:              opts.Logger.With("component", "online"),
		clientPositions:  make(map[string]geo.Latlong),
		simRegistrations: make(map[string]geo.Latlong),
		calls:            make(chan call),
		timers:           make(chan timerEvent),
		sslAnswers:       make(chan sslAnswer),
		done:             make(chan struct{}),
	}

	cfg := deep.MustCopy(*opts.Config)
	c.applyConfig(&cfg)

	// Request gzipped content if possible
	c.dl.SetAcceptEncoding("gzip")
	c.dl.SetIgnoreSslErrors(cfg.Online.IgnoreSSLErrors)

	c.updateAtcSizes()
	c.mgr.SetGeometryCallback(c.airspaceGeometry)
	return c, nil
}

// Run processes download completions, timers and calls until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	for {
		// Deferred work runs before anything new is received
		if len(c.pending) > 0 {
			fn := c.pending[0]
			c.pending = c.pending[1:]
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			c.stopAllProcesses()
			c.stopRetryTimer()
			return nil
		case ev := <-c.dl.Events():
			c.downloadEvent(ev)
		case t := <-c.timers:
			c.timerFired(t)
		case a := <-c.sslAnswers:
			c.sslDecided(a)
		case req := <-c.calls:
			req.fn()
			close(req.done)
		}
	}
}

// Call executes fn on the controller goroutine and waits for it. It blocks
// until Run is executing. After Run returned fn is executed directly.
func (c *Controller) Call(fn func()) {
	req := call{fn: fn, done: make(chan struct{})}
	select {
	case c.calls <- req:
		<-req.done
	case <-c.done:
		fn()
	}
}

func (c *Controller) later(fn func()) {
	c.pending = append(c.pending, fn)
}

func (c *Controller) applyConfig(cfg *config.Config) {
	c.cfg = *cfg
	c.network = cfg.ResolveNetwork()
	c.format = whazzup.Unknown

	if c.network.Name != config.NetworkNone {
		format, err := whazzup.ParseFormat(c.network.Format)
		if err != nil {
			c.lg.Warn("Invalid online format", "network", c.network.Name, "error", err)
		}
		c.format = format
	}
}

func (c *Controller) debug(msg string, args ...any) {
	if c.cfg.Online.Verbose {
		c.clg.Debug(msg, args...)
	}
}

// StartProcessing starts a download cycle unless one is running.
func (c *Controller) StartProcessing() {
	c.Call(c.startDownloadInternal)
}

func (c *Controller) startDownloadInternal() {
	c.debug("Start download cycle", "state", c.state)

	if c.dl.IsDownloading() || c.state != None {
		c.lg.Warn("Download cycle already running", "state", c.state)
		return
	}

	c.stopAllProcesses()

	if c.network.Name == config.NetworkNone {
		return
	}

	c.cycle = uuid.NewString()
	c.clg = c.lg.With("cycle", c.cycle)

	c.whazzupURLFromStatus, _, _ = c.mgr.WhazzupURLFromStatus()

	now := c.clock.Now()
	url := ""
	if c.format == whazzup.VATSIMJSON3 && c.network.TransceiverURL != "" &&
		!c.lastUpdateTransceivers.IsZero() &&
		c.lastUpdateTransceivers.Before(now.Add(-c.transceiverReload())) {
		// Transceivers are too old, the whazzup follows right after
		url = c.network.TransceiverURL
		c.state = DownloadingTransceivers
	} else {
		if !c.cfg.Online.NoUserAgent {
			c.dl.SetDefaultUserAgentShort(" Config/" + networkName(c.network.Name))
		}

		if c.whazzupURLFromStatus == "" && c.network.StatusURL != "" {
			url = c.network.StatusURL
			c.state = DownloadingStatus
		} else if c.whazzupURLFromStatus != "" || c.network.WhazzupURL != "" {
			url = c.whazzupURL()
			c.state = DownloadingWhazzup
		}
	}

	if url != "" {
		c.dl.SetURL(url)
		c.startDownloader()
	}
}

// whazzupURL prefers the URL from the status document.
func (c *Controller) whazzupURL() string {
	if c.whazzupURLFromStatus != "" {
		return c.whazzupURLFromStatus
	}
	return c.network.WhazzupURL
}

func (c *Controller) transceiverReload() time.Duration {
	if c.network.TransceiverReloadSeconds < 0 {
		return defaultTransceiverReload
	}
	return time.Duration(c.network.TransceiverReloadSeconds) * time.Second
}

// startDownloader starts the download on the next loop iteration. Starts
// belonging to an aborted chain are dropped.
func (c *Controller) startDownloader() {
	chain := c.chain
	c.debug("Download scheduled", "url", c.dl.URL(), "state", c.state)

	c.later(func() {
		if chain != c.chain {
			return
		}
		c.dl.StartDownload()
	})
}

func (c *Controller) downloadEvent(ev download.Event) {
	switch ev.Kind {
	case download.Finished:
		c.downloadFinished(ev.Data, ev.URL)
	case download.Failed:
		c.downloadFailed(ev.Err, ev.StatusCode, ev.URL)
	case download.SSLErrors:
		c.downloadSslErrors(ev.SSLErrors, ev.URL)
	}
}

func (c *Controller) decode(data []byte, utf8 bool, url string) (string, bool) {
	text, err := whazzup.Decode(data, utf8)
	if err != nil {
		c.downloadFailed(fmt.Errorf("cannot decode payload: %w", err), 0, url)
		return "", false
	}
	return text, true
}

func (c *Controller) downloadFinished(data []byte, url string) {
	c.debug("Download finished", "url", url, "bytes", len(data), "state", c.state)

	now := c.clock.Now()
	switch c.state {
	case DownloadingStatus:
		text, ok := c.decode(data, false, url)
		if !ok {
			return
		}
		c.mgr.ReadFromStatus(text)

		var json bool
		c.whazzupURLFromStatus, _, json = c.mgr.WhazzupURLFromStatus()

		if msg := c.mgr.MessageFromStatus(); msg != "" {
			c.later(func() { c.listener.StatusFileMessage(msg) })
		}

		switch {
		case json && c.network.TransceiverURL != "":
			c.state = DownloadingTransceivers
			c.dl.SetURL(c.network.TransceiverURL)
			c.startDownloader()
		case c.whazzupURLFromStatus != "":
			c.state = DownloadingWhazzup
			c.dl.SetURL(c.whazzupURLFromStatus)
			c.startDownloader()
		default:
			c.lg.Warn("Status document has no whazzup URL", "url", url)
			c.finishCycle(now)
		}

	case DownloadingTransceivers:
		text, ok := c.decode(data, true, url)
		if !ok {
			return
		}
		if err := c.mgr.ReadFromTransceivers(text); err != nil {
			c.clg.Warn("Cannot read transceivers", "url", url, "error", err)
		}

		c.state = DownloadingWhazzup
		c.lastUpdateTransceivers = now
		c.dl.SetURL(c.whazzupURL())
		c.startDownloader()

	case DownloadingWhazzup:
		text, ok := c.decode(data, c.format.IsJSON(), url)
		if !ok {
			return
		}

		accepted, err := c.mgr.ReadFromWhazzup(text, c.format, c.mgr.LastUpdateTimeFromWhazzup())
		if err != nil {
			c.clg.Warn("Cannot read whazzup", "url", url, "error", err)
			accepted = false
		}

		if !accepted {
			c.debug("Whazzup is not recent", "url", url)
			c.finishCycle(now)
			return
		}

		c.clientPositions = c.mgr.ClientCallsignAndPosMap()

		voiceURL := c.mgr.VoiceURLFromStatus()
		if !c.format.IsJSON() && voiceURL != "" &&
			c.lastServerDownload.Before(now.Add(-minServerDownloadInterval)) {
			c.state = DownloadingWhazzupServers
			c.dl.SetURL(voiceURL)
			c.startDownloader()
			return
		}

		c.finishCycle(now)
		c.clearAircraftCache()
		c.listener.OnlineServersUpdated(true, true)
		c.listener.OnlineClientAndAtcUpdated(true, true)
		c.statusBarMessage()

	case DownloadingWhazzupServers:
		text, ok := c.decode(data, false, url)
		if !ok {
			return
		}
		if err := c.mgr.ReadServersFromWhazzup(text, c.format, c.mgr.LastUpdateTimeFromWhazzup()); err != nil {
			c.clg.Warn("Cannot read servers", "url", url, "error", err)
		}
		c.lastServerDownload = now

		c.finishCycle(now)
		c.clearAircraftCache()
		c.listener.OnlineClientAndAtcUpdated(true, true)
		c.listener.OnlineServersUpdated(true, true)
		c.statusBarMessage()

	default:
		c.lg.Warn("Download finished without active chain", "url", url)
	}
}

// finishCycle ends a chain and waits for the next one.
func (c *Controller) finishCycle(now time.Time) {
	c.startDownloadTimer()
	c.state = None
	c.lastUpdate = now
	c.debug("Download cycle done", "cycle", c.cycle)
}

func (c *Controller) downloadFailed(err error, statusCode int, url string) {
	c.clg.Warn("Download failed", "url", url, "status", statusCode, "error", err)
	c.stopAllProcesses()
	c.clearAircraftCache()

	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	c.listener.StatusMessage("Online Network Failed",
		fmt.Sprintf("Download from\n\"%s\"\nfailed. Reason:\n%s\nRetrying again in three minutes.", url, reason))

	// Give the user a chance to correct the URLs
	c.startRetryTimer()
}

func (c *Controller) downloadSslErrors(errs []string, url string) {
	c.clg.Warn("SSL errors", "url", url, "errors", errs)

	if c.ssl == nil {
		c.downloadFailed(&download.SSLError{URL: url, Errors: errs}, 0, url)
		return
	}

	chain := c.chain
	decider := c.ssl
	go func() {
		accept, remember := decider.Decide(url, errs)
		select {
		case c.sslAnswers <- sslAnswer{chain: chain, url: url, errors: errs, accept: accept, remember: remember}:
		case <-c.done:
		}
	}()
}

func (c *Controller) sslDecided(a sslAnswer) {
	if a.chain != c.chain {
		c.debug("Dropping SSL decision of aborted chain", "url", a.url)
		return
	}

	if !a.accept {
		c.downloadFailed(&download.SSLError{URL: a.url, Errors: a.errors}, 0, a.url)
		return
	}

	c.lg.Info("Ignoring SSL errors", "url", a.url, "remember", a.remember)
	c.dl.SetIgnoreSslErrors(true)
	if a.remember {
		c.cfg.Online.IgnoreSSLErrors = true
		if c.rememberSSL != nil {
			c.rememberSSL()
		}
	}

	c.dl.SetURL(a.url)
	c.startDownloader()
}

func (c *Controller) stopAllProcesses() {
	c.dl.CancelDownload()
	c.stopReloadTimer()
	c.state = None
	c.chain++
	// Cached aircraft and client positions stay until the next whazzup is
	// accepted
	c.simRegistrations = make(map[string]geo.Latlong)
}

func (c *Controller) clearAircraftCache() {
	c.cache.clear()
	c.simRegistrations = make(map[string]geo.Latlong)
}

// reloadInterval returns the time until the next cycle.
func (c *Controller) reloadInterval() time.Duration {
	seconds := c.network.ReloadSeconds
	switch {
	case c.network.IsCustom():
		// Custom networks ignore the reload hint of the whazzup
		seconds = max(seconds, minReloadSeconds)
	case seconds == -1:
		seconds = max(c.mgr.ReloadMinutesFromWhazzup()*60, minAutoReloadSeconds)
	default:
		seconds = max(seconds, minReloadSeconds)
	}
	return time.Duration(seconds) * time.Second
}

func (c *Controller) startDownloadTimer() {
	c.stopReloadTimer()

	interval := c.reloadInterval()
	c.debug("Reload timer set", "interval", interval)

	ev := timerEvent{kind: timerReload, gen: c.reloadGen}
	c.reloadTimer = c.clock.AfterFunc(interval, func() { c.sendTimer(ev) })
}

func (c *Controller) stopReloadTimer() {
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
		c.reloadTimer = nil
	}
	c.reloadGen++
}

func (c *Controller) startRetryTimer() {
	c.stopRetryTimer()

	ev := timerEvent{kind: timerRetry, gen: c.retryGen}
	c.retryTimer = c.clock.AfterFunc(failureRetryDelay, func() { c.sendTimer(ev) })
}

func (c *Controller) stopRetryTimer() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.retryGen++
}

func (c *Controller) sendTimer(ev timerEvent) {
	select {
	case c.timers <- ev:
	case <-c.done:
	}
}

func (c *Controller) timerFired(ev timerEvent) {
	switch ev.kind {
	case timerReload:
		if ev.gen != c.reloadGen {
			return
		}
		c.reloadTimer = nil
	case timerRetry:
		if ev.gen != c.retryGen {
			return
		}
		c.retryTimer = nil
		c.debug("Retrying after failure")
	}
	c.startDownloadInternal()
}

// OptionsChanged applies a new configuration. Everything learned about
// the previous network is dropped and a new cycle starts.
func (c *Controller) OptionsChanged(cfg *config.Config) {
	snapshot := deep.MustCopy(*cfg)
	c.Call(func() { c.optionsChanged(&snapshot) })
}

// UserAirspacesUpdated reloads everything so controller boundaries are
// looked up again.
func (c *Controller) UserAirspacesUpdated() {
	c.Call(func() {
		cfg := c.cfg
		c.optionsChanged(&cfg)
	})
}

func (c *Controller) optionsChanged(cfg *config.Config) {
	c.lg.Info("Online options changed", "network", cfg.Online.Network)

	c.applyConfig(cfg)
	if cfg.Online.IgnoreSSLErrors {
		c.dl.SetIgnoreSslErrors(true)
	}

	// Forget the URLs of the status document too
	c.mgr.ResetForNewOptions()
	c.stopAllProcesses()
	c.stopRetryTimer()

	if err := c.mgr.ClearData(); err != nil {
		c.lg.Warn("Cannot clear online data", "error", err)
	}
	c.clearAircraftCache()
	c.clientPositions = make(map[string]geo.Latlong)
	c.whazzupURLFromStatus = ""

	c.updateAtcSizes()

	c.listener.OnlineClientAndAtcUpdated(true, true)
	c.listener.OnlineServersUpdated(true, true)
	c.listener.OnlineNetworkChanged()
	c.statusBarMessage()

	c.lastUpdate = time.Time{}
	c.lastServerDownload = time.Time{}
	c.lastUpdateTransceivers = time.Time{}

	c.startDownloadInternal()
}

func (c *Controller) updateAtcSizes() {
	c.atcSizes = FacilitySizes(c.cfg.Display)
	c.mgr.SetAtcSize(c.atcSizes)
}

func (c *Controller) airspaceGeometry(callsign string, facility whazzup.FacilityType) []geo.Latlong {
	if c.airspaces == nil {
		return nil
	}

	var boundary []geo.Latlong
	if c.cfg.Online.AirspaceByName {
		boundary = c.airspaces.ByName(callsign, facility)
	}
	if c.cfg.Online.AirspaceByFile && boundary == nil {
		boundary = c.airspaces.ByFile(callsign)
	}
	return boundary
}

func (c *Controller) statusBarMessage() {
	c.statusText = ""
	if net := c.networkTranslated(); net != "" {
		c.statusText = fmt.Sprintf("Connected to %s.", net)
	}
	c.listener.StatusMessage("", c.statusText)
}

// Close stops all downloads and timers. Stored network data is removed
// unless the configuration asks to keep it.
func (c *Controller) Close() error {
	var err error
	c.Call(func() {
		c.stopAllProcesses()
		c.stopRetryTimer()
		c.clearAircraftCache()
		c.mgr.SetGeometryCallback(nil)

		if !c.cfg.Online.KeepDataOnExit {
			err = c.mgr.ClearData()
		}
	})
	return err
}

type nopListener struct{}

func (nopListener) OnlineServersUpdated(bool, bool)      {}
func (nopListener) OnlineClientAndAtcUpdated(bool, bool) {}
func (nopListener) OnlineNetworkChanged()                {}
func (nopListener) StatusMessage(string, string)         {}
func (nopListener) StatusFileMessage(string)             {}
