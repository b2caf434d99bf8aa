package monitor

import "errors"

var (
	// ErrProbeTimeout is returned when a probe attempt exceeds its timeout
	ErrProbeTimeout = errors.New("probe timeout")
	// ErrProbeConnection is returned for refused, reset or otherwise failed connections
	ErrProbeConnection = errors.New("probe connection error")
	// ErrProbeNonSuccessStatus is returned when the target answers outside 2xx
	ErrProbeNonSuccessStatus = errors.New("probe non-success status")
	// ErrDNSResolution is returned when the target host cannot be resolved
	ErrDNSResolution = errors.New("dns resolution failure")
	// ErrNoTargets is returned when the initial target list is empty or unreadable
	ErrNoTargets = errors.New("no targets available")
)
