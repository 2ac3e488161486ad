package recognition

import (
	"context"
	"errors"
	"sync"
	"time"

	"Pantry-Pipeline-Backend/domain"

	"github.com/google/uuid"
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultPollMaxAttempts = 60
)

// ErrPollCanceled resolves a handle whose poll was canceled. Consumers treat
// it as "emit nothing": no state transition, no terminal write.
var ErrPollCanceled = errors.New("poll canceled")

// PollOutcome is the single terminal value a poll produces: either the full
// worker result or an error from the taxonomy (worker failure, timeout,
// cancellation).
type PollOutcome struct {
	Result *WorkerResult
	Err    error
}

// PollHandle is the cancellable task handle for one poll. It resolves
// exactly once on Done(); after Cancel() nothing is ever emitted.
type PollHandle struct {
	done       chan PollOutcome
	cancelCh   chan struct{}
	resolveOne sync.Once
	cancelOne  sync.Once
}

func (h *PollHandle) Done() <-chan PollOutcome {
	return h.done
}

func (h *PollHandle) Cancel() {
	h.cancelOne.Do(func() {
		close(h.cancelCh)
	})
}

func (h *PollHandle) resolve(outcome PollOutcome) {
	h.resolveOne.Do(func() {
		h.done <- outcome
		close(h.done)
	})
}

type Poller struct {
	client      WorkerClient
	interval    time.Duration
	maxAttempts int
}

func NewPoller(client WorkerClient, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	return &Poller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Start begins polling the worker for jobRef and returns immediately.
// Transport errors are transient and count as a regular attempt; the ceiling
// turns a never-changing remote status into ErrPollTimeout rather than
// hanging. Timers are stopped on every exit path.
func (p *Poller) Start(ctx context.Context, jobRef string) *PollHandle {
	handle := &PollHandle{
		done:     make(chan PollOutcome, 1),
		cancelCh: make(chan struct{}),
	}
	go p.run(ctx, jobRef, handle)
	return handle
}

func (p *Poller) run(ctx context.Context, jobRef string, handle *PollHandle) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-handle.cancelCh:
			handle.resolve(PollOutcome{Err: ErrPollCanceled})
			return
		case <-ctx.Done():
			handle.resolve(PollOutcome{Err: ctx.Err()})
			return
		default:
		}

		status, err := p.client.Status(ctx, jobRef)
		if err == nil {
			switch Classify(status) {
			case ClassCompleted:
				result, resErr := p.client.Result(ctx, jobRef)
				if resErr != nil {
					handle.resolve(PollOutcome{Err: resErr})
					return
				}
				handle.resolve(PollOutcome{Result: &result})
				return
			case ClassFailed:
				handle.resolve(PollOutcome{Err: &WorkerFailure{Message: status.Error}})
				return
			}
		}
		// err != nil is a transient network failure: retry on the next tick

		if attempt == p.maxAttempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-timer.C:
		case <-handle.cancelCh:
			timer.Stop()
			handle.resolve(PollOutcome{Err: ErrPollCanceled})
			return
		case <-ctx.Done():
			timer.Stop()
			handle.resolve(PollOutcome{Err: ctx.Err()})
			return
		}
	}

	handle.resolve(PollOutcome{Err: domain.ErrPollTimeout})
}

// PollTracker keeps at most one live poll per receipt. Replacing a poll
// cancels its predecessor so two pollers never race for the same terminal
// write.
type PollTracker struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*PollHandle
}

func NewPollTracker() *PollTracker {
	return &PollTracker{
		polls: make(map[uuid.UUID]*PollHandle),
	}
}

func (t *PollTracker) Replace(receiptID uuid.UUID, handle *PollHandle) {
	t.mu.Lock()
	if prev, ok := t.polls[receiptID]; ok {
		prev.Cancel()
	}
	t.polls[receiptID] = handle
	t.mu.Unlock()
}

func (t *PollTracker) Drop(receiptID uuid.UUID, handle *PollHandle) {
	t.mu.Lock()
	if current, ok := t.polls[receiptID]; ok && current == handle {
		delete(t.polls, receiptID)
	}
	t.mu.Unlock()
}

func (t *PollTracker) Cancel(receiptID uuid.UUID) {
	t.mu.Lock()
	if handle, ok := t.polls[receiptID]; ok {
		handle.Cancel()
		delete(t.polls, receiptID)
	}
	t.mu.Unlock()
}
