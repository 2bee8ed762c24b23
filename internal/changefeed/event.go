// Package changefeed delivers row-level change notifications for the tables
// the realtime views depend on. Events come either from the in-process
// publisher used by the services or from Postgres LISTEN/NOTIFY.
package changefeed

import (
	"context"
	"fmt"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

const (
	TableOrders    = "orders"
	TableAccounts  = "accounts"
	TableTables    = "restaurant_tables"
	TableDiscounts = "discount_eligibility"
)

// Row is a column-name keyed snapshot of a changed row.
type Row map[string]any

// Event describes one committed change.
type Event struct {
	Type  EventType `json:"event_type"`
	Table string    `json:"table"`
	Old   Row       `json:"old_row,omitempty"`
	New   Row       `json:"new_row,omitempty"`
}

// Filter restricts a subscription to rows whose columns equal the given values.
// Values are compared by their string form so numeric ids decoded from JSON
// match typed ids published in-process.
type Filter map[string]any

func (f Filter) Matches(evt Event) bool {
	if len(f) == 0 {
		return true
	}
	row := evt.New
	if evt.Type == EventDelete || row == nil {
		row = evt.Old
	}
	if row == nil {
		return false
	}
	for column, want := range f {
		got, ok := row[column]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

type Handler func(Event)

type Handle uint64

// Feed is the subscription side of the change-notification collaborator.
type Feed interface {
	Subscribe(table string, filter Filter, types []EventType, fn Handler) (Handle, error)
	Unsubscribe(h Handle) error
}

// Publisher is the write side used after a successful commit.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// NopPublisher drops events; used when the database emits them itself.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
