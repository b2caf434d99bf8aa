package monitor

import "time"

// Status represents the liveness status of a target
type Status string

const (
	StatusUnknown Status = "Unknown"
	StatusUp      Status = "Up"
	StatusError   Status = "Error"
	StatusDown    Status = "Down"
)

// IPNotFound is recorded when a target's host cannot be resolved
const IPNotFound = "IP Not Found"

// Target is one monitored endpoint and its tracked state
type Target struct {
	URL           string        `json:"url"`
	Domain        string        `json:"domain"`
	IP            string        `json:"ip"`
	Status        Status        `json:"status"`
	StatusCode    int           `json:"status_code"`
	ErrorCount    int           `json:"error_count"`
	LastChecked   time.Time     `json:"last_checked,omitzero"`
	ResponseTime  time.Duration `json:"response_time_ns,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
	LastCaptured  time.Time     `json:"last_captured,omitzero"`
	ScreenshotRef string        `json:"screenshot,omitempty"`
	Alerted       bool          `json:"alerted"`
	AlertedAt     time.Time     `json:"alerted_at,omitzero"`
}

// Resolved reports whether the target has a usable IP address
func (t Target) Resolved() bool {
	return t.IP != "" && t.IP != IPNotFound
}

// HasEvidence reports whether a screenshot has ever been captured
func (t Target) HasEvidence() bool {
	return !t.LastCaptured.IsZero() && t.ScreenshotRef != ""
}

// ProbeResult is the outcome of one liveness check, after retries
type ProbeResult struct {
	URL          string
	Success      bool
	StatusCode   int
	Attempts     int
	ResponseTime time.Duration
	Err          error
	IP           string
	CheckedAt    time.Time
}

// Transition describes a status change produced by classification
type Transition struct {
	From Status
	To   Status
}

// Changed reports whether the status moved
func (t Transition) Changed() bool {
	return t.From != t.To
}

// statusRank orders statuses for listings: Up, Error, Down, Unknown
func statusRank(s Status) int {
	switch s {
	case StatusUp:
		return 0
	case StatusError:
		return 1
	case StatusDown:
		return 2
	default:
		return 3
	}
}
