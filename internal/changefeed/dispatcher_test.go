package changefeed

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByTableTypeAndFilter(t *testing.T) {
	d := NewDispatcher(nil)

	var orders, kitchenUpdates, tables []Event
	_, err := d.Subscribe(TableOrders, nil, nil, func(evt Event) { orders = append(orders, evt) })
	require.NoError(t, err)
	_, err = d.Subscribe(TableOrders, Filter{"table_number": 4}, []EventType{EventUpdate}, func(evt Event) {
		kitchenUpdates = append(kitchenUpdates, evt)
	})
	require.NoError(t, err)
	_, err = d.Subscribe(TableTables, nil, nil, func(evt Event) { tables = append(tables, evt) })
	require.NoError(t, err)

	d.Publish(context.Background(), Event{Type: EventInsert, Table: TableOrders, New: Row{"table_number": 4}})
	d.Publish(context.Background(), Event{Type: EventUpdate, Table: TableOrders, New: Row{"table_number": 4}})
	d.Publish(context.Background(), Event{Type: EventUpdate, Table: TableOrders, New: Row{"table_number": 7}})

	assert.Len(t, orders, 3)
	assert.Len(t, kitchenUpdates, 1)
	assert.Empty(t, tables)
}

func TestDispatcherUnsubscribeIsIdempotent(t *testing.T) {
	d := NewDispatcher(nil)
	calls := 0
	h, err := d.Subscribe(TableAccounts, nil, nil, func(Event) { calls++ })
	require.NoError(t, err)

	require.NoError(t, d.Unsubscribe(h))
	require.NoError(t, d.Unsubscribe(h))
	assert.Equal(t, 0, d.Len())

	d.Dispatch(Event{Type: EventUpdate, Table: TableAccounts})
	assert.Equal(t, 0, calls)
}

func TestDispatcherRejectsInvalidSubscriptions(t *testing.T) {
	d := NewDispatcher(nil)
	_, err := d.Subscribe(" ", nil, nil, func(Event) {})
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = d.Subscribe(TableOrders, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidHandler)
}

func TestDispatcherSurvivesPanickingHandler(t *testing.T) {
	d := NewDispatcher(nil)
	reached := false
	_, _ = d.Subscribe(TableOrders, nil, nil, func(Event) { panic("boom") })
	_, _ = d.Subscribe(TableOrders, nil, nil, func(Event) { reached = true })

	d.Dispatch(Event{Type: EventInsert, Table: TableOrders})
	assert.True(t, reached)
}

func TestFilterMatchesDecodedPayloadAgainstTypedID(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	id := node.Generate()

	payload, err := json.Marshal(map[string]any{
		"event_type": "UPDATE",
		"table":      TableOrders,
		"new_row":    map[string]any{"id": id.Int64(), "kitchen_ready": true},
	})
	require.NoError(t, err)

	evt, err := DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventUpdate, evt.Type)
	assert.True(t, Filter{"id": id}.Matches(evt))
	assert.True(t, Filter{"kitchen_ready": true}.Matches(evt))
	assert.False(t, Filter{"id": id + 1}.Matches(evt))
}

func TestFilterUsesOldRowForDeletes(t *testing.T) {
	evt := Event{Type: EventDelete, Table: TableOrders, Old: Row{"table_number": 3}}
	assert.True(t, Filter{"table_number": 3}.Matches(evt))
	assert.False(t, Filter{"table_number": 4}.Matches(evt))
}

func TestDecodeEventRequiresTable(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event_type":"INSERT"}`))
	assert.ErrorIs(t, err, ErrInvalidTable)
}
