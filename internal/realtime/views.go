package realtime

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/menuya/internal/account/domain"
	"github.com/smallbiznis/menuya/internal/authorization"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
	tabledomain "github.com/smallbiznis/menuya/internal/table/domain"
	"gorm.io/gorm"
)

type Bucket string

const (
	BucketFree            Bucket = "free"
	BucketOccupied        Bucket = "occupied"
	BucketAwaitingOrder   Bucket = "awaiting_order_confirmation"
	BucketAwaitingPayment Bucket = "awaiting_payment_confirmation"
)

// PendingOrder is an order as one station sees it: only its own items.
type PendingOrder struct {
	ID          snowflake.ID       `json:"id"`
	TableNumber int                `json:"table_number"`
	Kind        orderdomain.Kind   `json:"kind"`
	State       orderdomain.State  `json:"state"`
	Items       []orderdomain.Item `json:"items"`
	PrepMinutes *int               `json:"prep_minutes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type PendingView struct {
	Role   authorization.Role `json:"role"`
	Orders []PendingOrder     `json:"orders"`
}

type TableStatus struct {
	Number       int                 `json:"number"`
	Available    bool                `json:"available"`
	Bucket       Bucket              `json:"bucket"`
	OrderState   orderdomain.State   `json:"order_state,omitempty"`
	AccountState accountdomain.State `json:"account_state,omitempty"`
	AccountID    *snowflake.ID       `json:"account_id,omitempty"`
}

type TablesView struct {
	Tables []TableStatus  `json:"tables"`
	Counts map[Bucket]int `json:"counts"`
}

type DeliveryAccount struct {
	ID        snowflake.ID        `json:"id"`
	OrderID   *snowflake.ID       `json:"order_id,omitempty"`
	State     accountdomain.State `json:"state"`
	Customer  string              `json:"customer,omitempty"`
	Total     decimal.Decimal     `json:"total"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type DeliveryAccountsView struct {
	Accounts []DeliveryAccount `json:"accounts"`
}

// Views computes every concern's view from storage.
type Views struct {
	db       *gorm.DB
	orders   orderdomain.Repository
	accounts accountdomain.Repository
	tables   tabledomain.Repository
}

func NewViews(db *gorm.DB, orders orderdomain.Repository, accounts accountdomain.Repository, tables tabledomain.Repository) *Views {
	return &Views{db: db, orders: orders, accounts: accounts, tables: tables}
}

func (v *Views) Pending(ctx context.Context, role authorization.Role) (PendingView, error) {
	items, err := v.orders.List(ctx, v.db, orderdomain.ListOrderFilter{
		States: orderdomain.KitchenQueueStates(),
	})
	if err != nil {
		return PendingView{}, err
	}
	return PendingView{Role: role, Orders: FilterPending(role, deref(items))}, nil
}

func (v *Views) Tables(ctx context.Context) (TablesView, error) {
	tables, err := v.tables.List(ctx, v.db)
	if err != nil {
		return TablesView{}, err
	}
	orders, err := v.orders.List(ctx, v.db, orderdomain.ListOrderFilter{
		Kind:   orderdomain.KindSalon,
		States: openOrderStates(),
	})
	if err != nil {
		return TablesView{}, err
	}
	accounts, err := v.accounts.List(ctx, v.db, accountdomain.ListAccountFilter{
		States: accountdomain.ActiveStates(),
	})
	if err != nil {
		return TablesView{}, err
	}
	return BuildTablesView(deref(tables), deref(orders), deref(accounts)), nil
}

func (v *Views) DeliveryAccounts(ctx context.Context) (DeliveryAccountsView, error) {
	table := accountdomain.DeliveryTableNumber
	items, err := v.accounts.List(ctx, v.db, accountdomain.ListAccountFilter{
		TableNumber: &table,
		States:      accountdomain.ActiveStates(),
	})
	if err != nil {
		return DeliveryAccountsView{}, err
	}

	view := DeliveryAccountsView{Accounts: make([]DeliveryAccount, 0, len(items))}
	for _, a := range deref(items) {
		view.Accounts = append(view.Accounts, DeliveryAccount{
			ID:        a.ID,
			OrderID:   a.OrderRef,
			State:     a.State,
			Customer:  a.CustomerName,
			Total:     a.Total,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return view, nil
}

// FilterPending keeps the items of the role's category on orders the role
// has not marked ready yet. Orders left with no items are dropped.
func FilterPending(role authorization.Role, orders []orderdomain.Order) []PendingOrder {
	station, ok := stationFor(role)
	if !ok {
		return []PendingOrder{}
	}

	out := make([]PendingOrder, 0, len(orders))
	for _, order := range orders {
		if order.Flag(station) {
			continue
		}
		items := make([]orderdomain.Item, 0, len(order.Items))
		for _, item := range order.Items {
			if item.Category == station.Category() {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, PendingOrder{
			ID:          order.ID,
			TableNumber: order.TableNumber,
			Kind:        order.Kind,
			State:       order.State,
			Items:       items,
			PrepMinutes: order.PrepMinutes,
			CreatedAt:   order.CreatedAt,
		})
	}
	return out
}

// BuildTablesView joins table availability with the latest open order and
// the active bill of each table. Orders and accounts are expected oldest first.
func BuildTablesView(tables []tabledomain.Table, orders []orderdomain.Order, accounts []accountdomain.Account) TablesView {
	statuses := make(map[int]*TableStatus, len(tables))
	for _, t := range tables {
		statuses[t.Number] = &TableStatus{Number: t.Number, Available: t.Available}
	}
	status := func(number int) *TableStatus {
		if s, ok := statuses[number]; ok {
			return s
		}
		s := &TableStatus{Number: number, Available: true}
		statuses[number] = s
		return s
	}

	for _, order := range orders {
		if order.IsDelivery() {
			continue
		}
		status(order.TableNumber).OrderState = order.State
	}
	for _, account := range accounts {
		if account.IsDelivery() {
			continue
		}
		s := status(account.TableNumber)
		id := account.ID
		s.AccountState = account.State
		s.AccountID = &id
	}

	view := TablesView{
		Tables: make([]TableStatus, 0, len(statuses)),
		Counts: map[Bucket]int{
			BucketFree:            0,
			BucketOccupied:        0,
			BucketAwaitingOrder:   0,
			BucketAwaitingPayment: 0,
		},
	}
	for _, s := range statuses {
		s.Bucket = bucketOf(*s)
		view.Counts[s.Bucket]++
		view.Tables = append(view.Tables, *s)
	}
	sort.Slice(view.Tables, func(i, j int) bool {
		return view.Tables[i].Number < view.Tables[j].Number
	})
	return view
}

func bucketOf(s TableStatus) Bucket {
	switch {
	case s.AccountState == accountdomain.StatePagoPendiente:
		return BucketAwaitingPayment
	case s.OrderState == orderdomain.StatePendiente:
		return BucketAwaitingOrder
	case !s.Available || s.OrderState != "" || s.AccountState != "":
		return BucketOccupied
	default:
		return BucketFree
	}
}

func stationFor(role authorization.Role) (orderdomain.Station, bool) {
	switch role {
	case authorization.RoleCocinero:
		return orderdomain.StationKitchen, true
	case authorization.RoleBartender:
		return orderdomain.StationBar, true
	default:
		return "", false
	}
}

func openOrderStates() []orderdomain.State {
	return []orderdomain.State{
		orderdomain.StatePendiente,
		orderdomain.StateEnPreparacion,
		orderdomain.StateListo,
		orderdomain.StateEntregado,
		orderdomain.StateRecibido,
	}
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
