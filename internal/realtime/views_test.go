package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/menuya/internal/account/domain"
	accountrepo "github.com/smallbiznis/menuya/internal/account/repository"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
	orderrepo "github.com/smallbiznis/menuya/internal/order/repository"
	orderservice "github.com/smallbiznis/menuya/internal/order/service"
	"github.com/smallbiznis/menuya/internal/realtime"
	tabledomain "github.com/smallbiznis/menuya/internal/table/domain"
	tablerepo "github.com/smallbiznis/menuya/internal/table/repository"
	tableservice "github.com/smallbiznis/menuya/internal/table/service"
	"github.com/smallbiznis/menuya/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func item(name, category string) orderdomain.Item {
	return orderdomain.Item{Name: name, Category: category, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}
}

func TestFilterPendingByRole(t *testing.T) {
	orders := []orderdomain.Order{
		{ID: 1, TableNumber: 1, State: orderdomain.StatePendiente, Items: []orderdomain.Item{item("Milanesa", orderdomain.CategoryFood), item("Agua", orderdomain.CategoryDrink)}},
		{ID: 2, TableNumber: 2, State: orderdomain.StateEnPreparacion, KitchenReady: true, Items: []orderdomain.Item{item("Pizza", orderdomain.CategoryFood), item("Vino", orderdomain.CategoryDrink)}},
		{ID: 3, TableNumber: 3, State: orderdomain.StatePendiente, Items: []orderdomain.Item{item("Cerveza", orderdomain.CategoryDrink)}},
		{ID: 4, TableNumber: 4, State: orderdomain.StatePendiente, Items: []orderdomain.Item{item("Postre", "Otro")}},
	}

	cook := realtime.FilterPending(authorization.RoleCocinero, orders)
	require.Len(t, cook, 1)
	assert.Equal(t, snowflake.ID(1), cook[0].ID)
	require.Len(t, cook[0].Items, 1)
	assert.Equal(t, "Milanesa", cook[0].Items[0].Name)

	bar := realtime.FilterPending(authorization.RoleBartender, orders)
	require.Len(t, bar, 3)
	assert.Equal(t, []snowflake.ID{1, 2, 3}, []snowflake.ID{bar[0].ID, bar[1].ID, bar[2].ID})

	assert.Empty(t, realtime.FilterPending(authorization.RoleMozo, orders))
}

func TestBuildTablesViewBuckets(t *testing.T) {
	tables := []tabledomain.Table{
		{Number: 1, Available: true},
		{Number: 2, Available: false},
		{Number: 3, Available: false},
		{Number: 4, Available: false},
	}
	orders := []orderdomain.Order{
		{ID: 10, TableNumber: 2, Kind: orderdomain.KindSalon, State: orderdomain.StateEntregado},
		{ID: 11, TableNumber: 2, Kind: orderdomain.KindSalon, State: orderdomain.StatePendiente},
		{ID: 12, TableNumber: 3, Kind: orderdomain.KindSalon, State: orderdomain.StateEntregado},
		{ID: 13, TableNumber: 9999, Kind: orderdomain.KindDelivery, State: orderdomain.StatePendiente},
	}
	accounts := []accountdomain.Account{
		{ID: 20, TableNumber: 4, State: accountdomain.StatePagoPendiente},
		{ID: 21, TableNumber: 9999, State: accountdomain.StatePagoPendiente},
	}

	view := realtime.BuildTablesView(tables, orders, accounts)
	require.Len(t, view.Tables, 4)
	buckets := map[int]realtime.Bucket{}
	for _, s := range view.Tables {
		buckets[s.Number] = s.Bucket
	}
	assert.Equal(t, realtime.BucketFree, buckets[1])
	assert.Equal(t, realtime.BucketAwaitingOrder, buckets[2], "the latest order decides")
	assert.Equal(t, realtime.BucketOccupied, buckets[3])
	assert.Equal(t, realtime.BucketAwaitingPayment, buckets[4])
	assert.Equal(t, 1, view.Counts[realtime.BucketFree])
	assert.Equal(t, 1, view.Counts[realtime.BucketAwaitingPayment])
}

func TestPendingConcernFollowsOrderLifecycle(t *testing.T) {
	db := testsupport.OpenDB(t)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))
	feed := changefeed.NewDispatcher(log)
	orderRepo := orderrepo.Provide()

	tables := tableservice.New(tableservice.Params{DB: db, Log: log, Clock: clk, Repo: tablerepo.Provide(), Publisher: feed})
	orders := orderservice.New(orderservice.Params{
		DB:        db,
		Log:       log,
		GenID:     testsupport.Node(t),
		Clock:     clk,
		Cfg:       config.Config{},
		Repo:      orderRepo,
		Tables:    tables,
		Publisher: feed,
	})
	registry := realtime.NewRegistry(realtime.Params{
		Feed:  feed,
		Views: realtime.NewViews(db, orderRepo, accountrepo.Provide(), tablerepo.Provide()),
		Log:   log,
	})
	defer registry.Close()

	hub, ok := registry.Pending(authorization.RoleCocinero)
	require.True(t, ok)
	sub, err := hub.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, (<-sub.Updates()).Orders)

	tablesSub, err := registry.Tables().Subscribe(context.Background())
	require.NoError(t, err)
	defer tablesSub.Close()
	<-tablesSub.Updates()

	ctx := context.Background()
	order, err := orders.Create(ctx, orderdomain.CreateOrderRequest{
		TableNumber: 6,
		Items:       []orderdomain.Item{item("Milanesa", orderdomain.CategoryFood)},
	})
	require.NoError(t, err)

	view := <-sub.Updates()
	require.Len(t, view.Orders, 1)
	assert.Equal(t, order.ID, view.Orders[0].ID)

	tablesView := <-tablesSub.Updates()
	require.Len(t, tablesView.Tables, 1)
	assert.Equal(t, realtime.BucketAwaitingOrder, tablesView.Tables[0].Bucket)

	_, err = orders.Confirm(ctx, orderdomain.ConfirmOrderRequest{ID: order.ID.String()})
	require.NoError(t, err)
	_, err = orders.MarkReady(ctx, orderdomain.MarkReadyRequest{ID: order.ID.String(), Station: orderdomain.StationKitchen})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		select {
		case view = <-sub.Updates():
		default:
		}
		return len(view.Orders) == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, ok = registry.Pending(authorization.RoleMozo)
	assert.False(t, ok)
	assert.Equal(t, []string{"delivery-accounts", "pending:bartender", "pending:cocinero", "tables"}, registry.Concerns())
}
