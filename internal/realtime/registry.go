// Package realtime is the change propagation layer: a registry of concerns,
// each recomputing a role view from storage whenever a row it depends on
// changes.
package realtime

import (
	"context"
	"sort"

	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ConcernTables           = "tables"
	ConcernDeliveryAccounts = "delivery-accounts"
)

// PendingConcern names the pending-orders concern of a station role.
func PendingConcern(role authorization.Role) string {
	return "pending:" + string(role)
}

type Params struct {
	fx.In

	Feed      changefeed.Feed
	Views     *Views
	Log       *zap.Logger
	Lifecycle *metrics.Lifecycle `optional:"true"`
}

// Registry holds one hub per concern.
type Registry struct {
	pending  map[authorization.Role]*Hub[PendingView]
	tables   *Hub[TablesView]
	delivery *Hub[DeliveryAccountsView]
}

func NewRegistry(p Params) *Registry {
	r := &Registry{pending: make(map[authorization.Role]*Hub[PendingView])}

	for _, role := range []authorization.Role{authorization.RoleCocinero, authorization.RoleBartender} {
		role := role
		r.pending[role] = NewHub(PendingConcern(role),
			[]string{changefeed.TableOrders},
			p.Feed,
			func(ctx context.Context) (PendingView, error) { return p.Views.Pending(ctx, role) },
			p.Log, p.Lifecycle,
		)
	}
	r.tables = NewHub(ConcernTables,
		[]string{changefeed.TableTables, changefeed.TableOrders, changefeed.TableAccounts},
		p.Feed, p.Views.Tables, p.Log, p.Lifecycle,
	)
	r.delivery = NewHub(ConcernDeliveryAccounts,
		[]string{changefeed.TableAccounts},
		p.Feed, p.Views.DeliveryAccounts, p.Log, p.Lifecycle,
	)
	return r
}

// Pending returns the pending-orders hub of a station role.
func (r *Registry) Pending(role authorization.Role) (*Hub[PendingView], bool) {
	hub, ok := r.pending[role]
	return hub, ok
}

func (r *Registry) Tables() *Hub[TablesView] {
	return r.tables
}

func (r *Registry) DeliveryAccounts() *Hub[DeliveryAccountsView] {
	return r.delivery
}

// Concerns lists the registered concern names.
func (r *Registry) Concerns() []string {
	names := []string{r.tables.Name(), r.delivery.Name()}
	for _, hub := range r.pending {
		names = append(names, hub.Name())
	}
	sort.Strings(names)
	return names
}

// Close ends every subscription and releases the change feed.
func (r *Registry) Close() {
	for _, hub := range r.pending {
		hub.Close()
	}
	r.tables.Close()
	r.delivery.Close()
}
