package serving

import "time"

// WorkerMode selects how the HTTP worker executes.
type WorkerMode string

const (
	// ModeThread runs the worker as a goroutine sharing memory with the
	// spawner; readiness is a shared flag flipped after the listener binds.
	ModeThread WorkerMode = "thread"
	// ModeProcess runs the worker as a child process; readiness is inferred
	// by polling the model-listing endpoint, since no memory is shared.
	ModeProcess WorkerMode = "process"
)

// worker is the common contract of both execution modes. Stop must be safe
// to call more than once, from a different goroutine than Start, and must
// return within roughly the join timeout.
type worker interface {
	Start() error
	Alive() bool
	Ready() bool
	Err() error
	Stop(join time.Duration)
	pollInterval() time.Duration
}
