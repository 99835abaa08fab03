package events

import "time"

// ServiceCallStart is emitted before a remote service method is invoked.
type ServiceCallStart struct {
	Service string
	Method  string
	Target  string
}

// ServiceCallFinish is emitted after a remote service call completes.
// Status is the HTTP status, or 0 when no response was received.
type ServiceCallFinish struct {
	Service  string
	Method   string
	Target   string
	Status   int
	Err      error
	Duration time.Duration
}
