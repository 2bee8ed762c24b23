package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"go.uber.org/zap"
)

const recomputeTimeout = 5 * time.Second

var ErrHubUnavailable = errors.New("hub_unavailable")

// Source recomputes a concern's view from storage.
type Source[T any] func(ctx context.Context) (T, error)

// Hub serves one concern. It holds a change-feed subscription per table the
// view depends on while it has subscribers, recomputes the view after every
// change and hands each subscriber the latest view only.
type Hub[T any] struct {
	name      string
	tables    []string
	feed      changefeed.Feed
	source    Source[T]
	log       *zap.Logger
	lifecycle *metrics.Lifecycle

	mu      sync.Mutex
	subs    map[uint64]chan T
	nextID  uint64
	handles []changefeed.Handle
	worker  *worker
}

// worker recomputes the view off the publisher's goroutine. Changes that
// arrive while a recompute runs collapse into one more recompute.
type worker struct {
	ctx    context.Context
	cancel context.CancelFunc
	wake   chan changefeed.Event
}

type Subscription[T any] struct {
	hub  *Hub[T]
	id   uint64
	ch   chan T
	once sync.Once
}

func NewHub[T any](name string, tables []string, feed changefeed.Feed, source Source[T], log *zap.Logger, lifecycle *metrics.Lifecycle) *Hub[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub[T]{
		name:      name,
		tables:    tables,
		feed:      feed,
		source:    source,
		log:       log.Named("realtime").With(zap.String("concern", name)),
		lifecycle: lifecycle,
		subs:      make(map[uint64]chan T),
	}
}

func (h *Hub[T]) Name() string {
	return h.name
}

// Subscribe registers a subscriber whose channel already holds the current view.
func (h *Hub[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	if h == nil || h.feed == nil || h.source == nil {
		return nil, ErrHubUnavailable
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) == 0 {
		if err := h.attach(); err != nil {
			return nil, err
		}
	}

	view, err := h.source(ctx)
	if err != nil {
		h.lifecycle.Recompute(h.name, "error")
		if len(h.subs) == 0 {
			h.detach()
		}
		return nil, &apperror.PropagationError{Concern: h.name, Err: err}
	}

	id := h.nextID
	h.nextID++
	ch := make(chan T, 1)
	ch <- view
	h.subs[id] = ch

	return &Subscription[T]{hub: h, id: id, ch: ch}, nil
}

// Len reports the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber and releases the feed subscriptions.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.detach()
}

func (h *Hub[T]) attach() error {
	for _, table := range h.tables {
		handle, err := h.feed.Subscribe(table, nil, nil, h.onChange)
		if err != nil {
			h.detach()
			return &apperror.PropagationError{Concern: h.name, Err: err}
		}
		h.handles = append(h.handles, handle)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.worker = &worker{ctx: ctx, cancel: cancel, wake: make(chan changefeed.Event, 1)}
	go h.run(h.worker)
	h.log.Debug("concern attached to change feed", zap.Strings("tables", h.tables))
	return nil
}

func (h *Hub[T]) detach() {
	for _, handle := range h.handles {
		if err := h.feed.Unsubscribe(handle); err != nil {
			h.log.Warn("failed to release change feed subscription", zap.Error(err))
		}
	}
	if len(h.handles) > 0 {
		h.log.Debug("concern detached from change feed")
	}
	h.handles = nil
	if h.worker != nil {
		h.worker.cancel()
		h.worker = nil
	}
}

// onChange only wakes the worker; the publisher never waits on storage.
func (h *Hub[T]) onChange(evt changefeed.Event) {
	h.mu.Lock()
	w := h.worker
	h.mu.Unlock()
	if w == nil {
		return
	}
	select {
	case w.wake <- evt:
	default:
	}
}

func (h *Hub[T]) run(w *worker) {
	for {
		select {
		case <-w.ctx.Done():
			return
		case evt := <-w.wake:
			h.recompute(w, evt)
		}
	}
}

// recompute reads the view from storage rather than applying the event as a
// delta: the feed gives no ordering guarantee across tables.
func (h *Hub[T]) recompute(w *worker, evt changefeed.Event) {
	ctx, cancel := context.WithTimeout(w.ctx, recomputeTimeout)
	defer cancel()

	view, err := h.source(ctx)
	if w.ctx.Err() != nil {
		return
	}
	if err != nil {
		h.lifecycle.Recompute(h.name, "error")
		h.log.Error("view recompute failed",
			zap.String("table", evt.Table),
			zap.String("event_type", string(evt.Type)),
			zap.Error(&apperror.PropagationError{Concern: h.name, Err: err}),
		)
		return
	}
	h.lifecycle.Recompute(h.name, "ok")

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.worker != w {
		return
	}
	for _, ch := range h.subs {
		offer(ch, view)
	}
}

func (h *Hub[T]) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
	if len(h.subs) == 0 {
		h.detach()
	}
}

// offer replaces a view the subscriber has not read yet.
func offer[T any](ch chan T, view T) {
	select {
	case ch <- view:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- view:
	default:
	}
}

// Updates yields the latest view; it is closed once the subscription ends.
func (s *Subscription[T]) Updates() <-chan T {
	if s == nil {
		return nil
	}
	return s.ch
}

// Close is safe to call more than once and concurrently with a recompute.
// No view is delivered after it returns.
func (s *Subscription[T]) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}
