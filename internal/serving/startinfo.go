package serving

import "sync"

// StartInfo carries startup state across the spawner/worker boundary. The
// port is written once before the worker spawns; readiness (or the death
// cause) is written by the worker and read by the waiting caller and the
// shutdown path, so every access goes through the mutex.
type StartInfo struct {
	mu    sync.Mutex
	port  int
	ready bool
	err   error
}

// NewStartInfo returns an empty StartInfo.
func NewStartInfo() *StartInfo { return &StartInfo{} }

// SetPort records the allocated port. Called once, before worker spawn.
func (si *StartInfo) SetPort(port int) {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.port = port
}

// Port returns the allocated port, or 0 if not yet set.
func (si *StartInfo) Port() int {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.port
}

// MarkReady flips the readiness flag. Idempotent.
func (si *StartInfo) MarkReady() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.ready = true
}

// Ready reports whether the worker has signaled readiness.
func (si *StartInfo) Ready() bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.ready
}

// Fail records the worker's death cause. The first cause wins.
func (si *StartInfo) Fail(err error) {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.err == nil {
		si.err = err
	}
}

// Err returns the recorded death cause, if any.
func (si *StartInfo) Err() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.err
}
