package online

// State is the stage of the download chain.
type State int

const (
	// None means no download is running. A new cycle may start.
	None State = iota
	DownloadingStatus
	DownloadingTransceivers
	DownloadingWhazzup
	DownloadingWhazzupServers
)

func (s State) String() string {
	switch s {
	case None:
		return "None"
	case DownloadingStatus:
		return "DownloadingStatus"
	case DownloadingTransceivers:
		return "DownloadingTransceivers"
	case DownloadingWhazzup:
		return "DownloadingWhazzup"
	case DownloadingWhazzupServers:
		return "DownloadingWhazzupServers"
	default:
		return "Unknown"
	}
}
