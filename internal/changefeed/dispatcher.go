package changefeed

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrInvalidTable   = errors.New("invalid_table")
	ErrInvalidHandler = errors.New("invalid_handler")
)

type subscriber struct {
	table  string
	filter Filter
	types  map[EventType]struct{}
	fn     Handler
}

// Dispatcher fans committed events out to matching subscribers. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[Handle]*subscriber
	order  []Handle
	nextID Handle
	log    *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		subs: make(map[Handle]*subscriber),
		log:  log.Named("changefeed"),
	}
}

func (d *Dispatcher) Subscribe(table string, filter Filter, types []EventType, fn Handler) (Handle, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return 0, ErrInvalidTable
	}
	if fn == nil {
		return 0, ErrInvalidHandler
	}

	sub := &subscriber{table: table, filter: filter, fn: fn}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.subs[id] = sub
	d.order = append(d.order, id)
	return id, nil
}

// Unsubscribe removes the handler. Unknown or already released handles are ignored.
func (d *Dispatcher) Unsubscribe(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subs[h]; !ok {
		return nil
	}
	delete(d.subs, h)
	for i, id := range d.order {
		if id == h {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *Dispatcher) Publish(_ context.Context, evt Event) {
	d.Dispatch(evt)
}

func (d *Dispatcher) Dispatch(evt Event) {
	d.mu.RLock()
	targets := make([]Handler, 0, len(d.order))
	for _, id := range d.order {
		sub := d.subs[id]
		if sub == nil || sub.table != evt.Table {
			continue
		}
		if sub.types != nil {
			if _, ok := sub.types[evt.Type]; !ok {
				continue
			}
		}
		if !sub.filter.Matches(evt) {
			continue
		}
		targets = append(targets, sub.fn)
	}
	d.mu.RUnlock()

	for _, fn := range targets {
		d.invoke(fn, evt)
	}
}

func (d *Dispatcher) invoke(fn Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("change handler panicked",
				zap.String("table", evt.Table),
				zap.String("event_type", string(evt.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	fn(evt)
}

// Len reports the number of live subscriptions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
