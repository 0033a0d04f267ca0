package online

import (
	"time"

	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/internal/onlinedb"
	"github.com/unklstewy/navmap-online/pkg/download"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// Downloader fetches one URL at a time. *download.Client implements it.
type Downloader interface {
	Events() <-chan download.Event
	SetURL(url string)
	URL() string
	StartDownload()
	CancelDownload()
	IsDownloading() bool
	SetAcceptEncoding(encoding string)
	SetDefaultUserAgentShort(suffix string)
	SetIgnoreSslErrors(ignore bool)
}

// Manager parses payloads and stores the clients. *onlinedb.Manager
// implements it.
type Manager interface {
	ReadFromStatus(text string) whazzup.Status
	ReadFromTransceivers(text string) error
	ReadFromWhazzup(text string, format whazzup.Format, previousUpdate time.Time) (bool, error)
	ReadServersFromWhazzup(text string, format whazzup.Format, updateTime time.Time) error

	WhazzupURLFromStatus() (url string, gzipped bool, json bool)
	VoiceURLFromStatus() string
	MessageFromStatus() string
	ReloadMinutesFromWhazzup() int
	LastUpdateTimeFromWhazzup() time.Time

	ClientCallsignAndPosMap() map[string]geo.Latlong
	ClientRecordsByCallsign(callsign string) ([]whazzup.Client, error)
	ClientByID(id int64) (whazzup.Client, error)
	ClientsInRect(box geo.LatlongBox, limit int) ([]whazzup.Client, error)

	SetAtcSize(sizes map[whazzup.FacilityType]int)
	SetGeometryCallback(fn onlinedb.GeometryFunc)
	ResetForNewOptions()
	ClearData() error
	HasData() bool
	NumClients() int
}

// Listener receives notifications of the controller. Methods are called on
// the controller goroutine and must neither block nor call back into the
// controller.
type Listener interface {
	OnlineServersUpdated(loadAll, keepSelection bool)
	OnlineClientAndAtcUpdated(loadAll, keepSelection bool)
	OnlineNetworkChanged()

	// StatusMessage reports the connection state. title is empty for
	// plain status updates.
	StatusMessage(title, text string)

	// StatusFileMessage shows the message of a downloaded status document.
	StatusFileMessage(text string)
}

// Simulator gives access to the aircraft of a connected flight simulator.
type Simulator interface {
	UserAircraft() Aircraft
	AIAircraft() []Aircraft
	IsConnected() bool
}

// AirspaceSource looks up controller boundaries.
type AirspaceSource interface {
	ByName(callsign string, facility whazzup.FacilityType) []geo.Latlong
	ByFile(callsign string) []geo.Latlong
}

// SSLDecider decides whether a download with certificate errors may go on.
// remember asks to keep ignoring errors in future sessions. Decide is
// called on its own goroutine and may block for user input.
type SSLDecider interface {
	Decide(url string, errors []string) (accept, remember bool)
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock is the time source of the controller.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
