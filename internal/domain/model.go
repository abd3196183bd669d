package domain

// Channel selects the acquisition strategy for the language server.
type Channel string

const (
	ChannelStable  Channel = "stable"
	ChannelNightly Channel = "nightly"
	ChannelCustom  Channel = "custom"
)

// Asset is a single downloadable file attached to a published release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Release is one published release as reported by the release provider.
type Release struct {
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	TagName    string  `json:"tag_name"`
	Assets     []Asset `json:"assets"`
}

// InstallState is the probed state of the language-server binary.
// Version is empty when the binary exists but did not report a version.
type InstallState struct {
	Present bool
	Path    string
	Version string
}

// Decision is the outcome of one acquisition pass.
type Decision int

const (
	DecisionSkip Decision = iota // installed version already matches the target
	DecisionInstall
	DecisionUpdate
	DecisionBuild
	DecisionSelfUpdate // nightly channel delegates to the binary's own updater
	DecisionDeclined   // user opted out; not an error
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionInstall:
		return "install"
	case DecisionUpdate:
		return "update"
	case DecisionBuild:
		return "build"
	case DecisionSelfUpdate:
		return "self-update"
	case DecisionDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// ConnState is the lifecycle state of the language-server client.
type ConnState int

const (
	ConnStopped ConnState = iota
	ConnStarting
	ConnRunning
	ConnStopping
	ConnRestarting
)

// String returns the state name for logs.
func (s ConnState) String() string {
	switch s {
	case ConnStopped:
		return "stopped"
	case ConnStarting:
		return "starting"
	case ConnRunning:
		return "running"
	case ConnStopping:
		return "stopping"
	case ConnRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// StatusEvent is one line of the language server's newline-delimited JSON
// status output during install/check/update operations.
type StatusEvent struct {
	Message string       `json:"message"`
	Error   *StatusError `json:"error,omitempty"`
}

// StatusError is the error payload of a StatusEvent.
type StatusError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
