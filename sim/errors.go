package sim

import "errors"

// Common errors returned by the engine lifecycle and config validation.
var (
	ErrAlreadyRunning = errors.New("simulator is already running")
	ErrNotRunning     = errors.New("simulator is not running")

	ErrInvalidLatitude    = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude   = errors.New("longitude must be between -180 and 180")
	ErrInvalidInterval    = errors.New("interval must be positive")
	ErrInvalidSpeed       = errors.New("speed must be non-negative")
	ErrInvalidUDPPort     = errors.New("udp port must be between 1 and 65535")
	ErrInvalidTCPPort     = errors.New("tcp port must be between 0 and 65535")
	ErrInvalidStartTime   = errors.New("start datetime is not an ISO-8601 timestamp")
	ErrInvalidTargetCount = errors.New("ais target count must be non-negative")
	ErrInvalidRadius      = errors.New("ais distribution radius must be non-negative")
	ErrInvalidBaudRate    = errors.New("baud rate must be positive")
	ErrConflictingAnchors = errors.New("gpx offset and start fraction are mutually exclusive")
	ErrAnchorWithoutTrack = errors.New("gpx anchor requires a track")
)
