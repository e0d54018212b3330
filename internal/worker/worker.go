package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/climate-series/internal/series"
)

// State is the lifecycle state of a worker.
type State int

const (
	StateUnconfigured State = iota
	StateIdle
	StateFetching
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	default:
		return "terminated"
	}
}

// ErrTerminated is returned when posting to a worker that has been terminated.
var ErrTerminated = errors.New("worker terminated")

// FaultError reports a failure of the worker itself rather than of a request.
type FaultError struct {
	WorkerID uuid.UUID
	Cause    any
	Stack    []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("worker %s crashed: %v", e.WorkerID, e.Cause)
}

// Spawner starts a fresh, unconfigured worker.
type Spawner func() *Worker

// NewSpawner returns a Spawner whose workers each own a new series.Service
// over the shared fetcher and cache. Their cache fills are deduplicated.
func NewSpawner(fetcher series.Fetcher, cache series.Cache) Spawner {
	fills := &singleflight.Group{}
	return func() *Worker {
		return Start(series.NewService(fetcher, cache).ShareFills(fills))
	}
}

// Worker runs a series.Service on its own goroutine. Callers talk to it only
// through Post, Messages and Errors. Messages are processed in the order they
// were posted.
type Worker struct {
	id     uuid.UUID
	svc    *series.Service
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	inbox    chan Message
	messages chan Reply
	errors   chan error
	done     chan struct{}

	mu    sync.Mutex
	state State

	// sendMu orders replies against Terminate.
	sendMu sync.Mutex
}

// Start launches a worker around svc, which must not be shared with other workers.
func Start(svc *series.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		id:       uuid.New(),
		svc:      svc,
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan Message, 8),
		messages: make(chan Reply, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
		state:    StateUnconfigured,
	}
	w.logger = slog.Default().With("worker", w.id.String())
	w.logger.Debug("worker started")

	go w.run()
	return w
}

// ID identifies the worker in logs.
func (w *Worker) ID() uuid.UUID {
	return w.id
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Messages delivers one Reply per GET_DATA.
func (w *Worker) Messages() <-chan Reply {
	return w.messages
}

// Errors delivers a *FaultError if the worker crashes.
func (w *Worker) Errors() <-chan error {
	return w.errors
}

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Post enqueues msg. Posting TERMINATE also cancels any request in progress.
func (w *Worker) Post(msg Message) error {
	if msg.Action == ActionTerminate {
		w.Terminate()
		return nil
	}

	select {
	case <-w.ctx.Done():
		return ErrTerminated
	default:
	}

	select {
	case w.inbox <- msg:
		return nil
	case <-w.ctx.Done():
		return ErrTerminated
	}
}

// Terminate stops the worker. No message is processed or replied to once it
// returns. It is safe to call more than once.
func (w *Worker) Terminate() {
	w.cancel()
	// Waits out a reply that was already being sent.
	w.sendMu.Lock()
	w.sendMu.Unlock()
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.setState(StateTerminated)
	defer func() {
		if r := recover(); r != nil {
			fault := &FaultError{WorkerID: w.id, Cause: r, Stack: debug.Stack()}
			w.logger.Error("worker crashed", "error", fault)
			select {
			case w.errors <- fault:
			default:
			}
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("worker terminated")
			return
		case msg := <-w.inbox:
			// A TERMINATE racing with queued work wins.
			if w.ctx.Err() != nil {
				w.logger.Debug("worker terminated")
				return
			}
			w.handle(msg)
		}
	}
}

func (w *Worker) handle(msg Message) {
	switch msg.Action {
	case ActionConfig:
		w.svc.Configure(msg.Routes)
		w.setState(StateIdle)

	case ActionGetData:
		if w.svc.Configured() {
			w.setState(StateFetching)
		}
		result, err := w.svc.GetData(w.ctx, msg.DataType, msg.Filters)
		if w.svc.Configured() {
			w.setState(StateIdle)
		}

		reply := Reply{Status: StatusSuccess, Result: result}
		if err != nil {
			reply = Reply{Status: StatusError, Err: err}
		}
		w.reply(reply)

	default:
		w.logger.Warn("ignoring unknown worker action", "action", msg.Action)
	}
}

func (w *Worker) reply(r Reply) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	select {
	case w.messages <- r:
	case <-w.ctx.Done():
	}
}
