package serving

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// threadPollInterval is the readiness poll period for in-process workers;
// binding a listener is fast, so the wait is short.
const threadPollInterval = 100 * time.Millisecond

// threadWorker serves HTTP from a goroutine in the spawning process.
// Readiness is signaled through StartInfo immediately after the listener
// binds and before the accept loop starts.
type threadWorker struct {
	addr     string
	srv      *http.Server
	info     *StartInfo
	done     chan struct{}
	stopping atomic.Bool
	log      zerolog.Logger
}

func newThreadWorker(port int, handler http.Handler, info *StartInfo, log zerolog.Logger) *threadWorker {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	return &threadWorker{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: handler},
		info: info,
		done: make(chan struct{}),
		log:  log,
	}
}

func (w *threadWorker) Start() error {
	go w.run()
	return nil
}

func (w *threadWorker) run() {
	defer close(w.done)
	l, err := net.Listen("tcp", w.addr)
	if err != nil {
		// Lost the port-allocation race, or the port vanished.
		w.info.Fail(err)
		return
	}
	// Serve closes l once it has tracked it, but a Stop racing the window
	// before Serve starts leaves l untracked and open. Double close is a
	// harmless ErrClosed.
	defer l.Close()
	w.info.MarkReady()
	if err := w.srv.Serve(l); err != nil && err != http.ErrServerClosed && !w.stopping.Load() {
		w.info.Fail(err)
	}
}

func (w *threadWorker) Alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *threadWorker) Ready() bool { return w.info.Ready() }

func (w *threadWorker) Err() error { return w.info.Err() }

// Stop asks the HTTP server to shut down and waits for the goroutine to
// exit, bounded by join. A missed join is logged, never escalated.
func (w *threadWorker) Stop(join time.Duration) {
	w.stopping.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), join)
	defer cancel()
	if err := w.srv.Shutdown(ctx); err != nil {
		// Graceful drain missed the deadline; cut remaining connections.
		w.log.Warn().Err(err).Msg("http server shutdown, forcing close")
		_ = w.srv.Close()
	}
	select {
	case <-w.done:
	case <-time.After(join):
		w.log.Warn().Dur("join", join).Msg("worker goroutine did not exit within join timeout")
	}
}

func (w *threadWorker) pollInterval() time.Duration { return threadPollInterval }
