package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrDispatcherClosed is returned for events submitted after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Handler processes one event. *Machine implements it.
type Handler interface {
	Handle(ctx context.Context, ev Event) ([]Reply, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) ([]Reply, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) ([]Reply, error) { return f(ctx, ev) }

// Dispatcher serializes events per channel and runs different channels in
// parallel. Each channel with pending work owns one goroutine that drains its
// queue and exits when the queue is empty.
type Dispatcher struct {
	Handler  Handler
	Notifier Notifier

	// Timeout bounds a single Handle call. Zero means no bound.
	Timeout time.Duration
	// ErrorText is sent to the channel when Handle fails on a submitted event.
	ErrorText string
	Log       zerolog.Logger

	mu     sync.Mutex
	lanes  map[int64][]job
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	ctx  context.Context
	ev   Event
	done chan result // nil for fire-and-forget
}

type result struct {
	replies []Reply
	err     error
}

// NewDispatcher wires h to n. The notifier may be nil when only Do is used.
func NewDispatcher(h Handler, n Notifier) *Dispatcher {
	return &Dispatcher{
		Handler:   h,
		Notifier:  n,
		Timeout:   30 * time.Second,
		ErrorText: DefaultTexts().GenericError,
		Log:       log.With().Str("component", "dispatcher").Logger(),
		lanes:     make(map[int64][]job),
	}
}

// Submit queues ev and returns immediately. Replies go to the notifier.
func (d *Dispatcher) Submit(ev Event) error {
	return d.enqueue(job{ctx: context.Background(), ev: ev})
}

// Do queues ev behind any pending events of the same channel and waits for
// its replies. The notifier is not used.
func (d *Dispatcher) Do(ctx context.Context, ev Event) ([]Reply, error) {
	done := make(chan result, 1)
	if err := d.enqueue(job{ctx: ctx, ev: ev, done: done}); err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.replies, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to finish.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if d.lanes == nil {
		d.lanes = make(map[int64][]job)
	}
	id := j.ev.ChannelID
	queue, running := d.lanes[id]
	d.lanes[id] = append(queue, j)
	if !running {
		d.wg.Add(1)
		activeLanes.Inc()
		go d.drain(id)
	}
	return nil
}

// drain runs the channel's jobs in order. The lock is held only while
// touching the queue, never during Handle.
func (d *Dispatcher) drain(id int64) {
	defer d.wg.Done()
	defer activeLanes.Dec()
	for {
		d.mu.Lock()
		queue := d.lanes[id]
		if len(queue) == 0 {
			delete(d.lanes, id)
			d.mu.Unlock()
			return
		}
		j := queue[0]
		queue[0] = job{}
		d.lanes[id] = queue[1:]
		d.mu.Unlock()

		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	if err := j.ctx.Err(); err != nil {
		if j.done != nil {
			j.done <- result{err: err}
		}
		return
	}

	ctx := j.ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	replies, err := d.safeHandle(ctx, j.ev)
	if j.done != nil {
		j.done <- result{replies: replies, err: err}
		return
	}

	if err != nil {
		d.Log.Error().Err(err).Int64("channel_id", j.ev.ChannelID).Msg("handle event failed")
		replies = []Reply{{Text: d.ErrorText}}
	}
	if d.Notifier == nil || len(replies) == 0 {
		return
	}
	if err := d.Notifier.Notify(ctx, j.ev.ChannelID, replies); err != nil {
		d.Log.Warn().Err(err).Int64("channel_id", j.ev.ChannelID).Msg("notify failed")
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, ev Event) (replies []Reply, err error) {
	kind := eventKind(ev)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			d.Log.Error().Interface("panic", p).Int64("channel_id", ev.ChannelID).Msg("handler panic")
			replies, err = nil, fmt.Errorf("handler panic: %v", p)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		eventsHandled.WithLabelValues(kind, outcome).Inc()
		handleDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()
	return d.Handler.Handle(ctx, ev)
}
