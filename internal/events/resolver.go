package events

import "time"

// ResolverStart is emitted before a wrapped resolver handler runs.
type ResolverStart struct {
	Name      string
	Operation string
}

// ResolverFinish is emitted after a wrapped resolver handler returns.
type ResolverFinish struct {
	Name      string
	Operation string
	Err       error
	Duration  time.Duration
}

// PreStartFinish is emitted once all plugin pre-start hooks have returned.
type PreStartFinish struct {
	Hooks    int
	Err      error
	Duration time.Duration
}
