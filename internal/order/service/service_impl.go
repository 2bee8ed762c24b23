package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/internal/notification"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"github.com/smallbiznis/menuya/internal/order/domain"
	tabledomain "github.com/smallbiznis/menuya/internal/table/domain"
	"github.com/smallbiznis/menuya/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	Repo      domain.Repository
	Tables    tabledomain.Service  `optional:"true"`
	Notifier  notification.Sender  `optional:"true"`
	Publisher changefeed.Publisher `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
	Lifecycle *metrics.Lifecycle   `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	policy    domain.ReadinessPolicy
	repo      domain.Repository
	tables    tabledomain.Service
	notifier  notification.Sender
	publisher changefeed.Publisher
	metrics   *metrics.Metrics
	lifecycle *metrics.Lifecycle
}

func New(p Params) domain.Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = changefeed.NopPublisher{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		policy:    domain.ParseReadinessPolicy(p.Cfg.ReadinessPolicy),
		repo:      p.Repo,
		tables:    p.Tables,
		notifier:  p.Notifier,
		publisher: publisher,
		metrics:   p.Metrics,
		lifecycle: p.Lifecycle,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if err := domain.ValidateCreate(&req); err != nil {
		return domain.Order{}, err
	}
	if req.State != "" && req.State != domain.StatePendiente {
		return domain.Order{}, apperror.Validation("state", "new orders start pendiente")
	}

	total := domain.ComputeTotal(req.Items)
	if req.TotalAmount != nil {
		total = decimal.NewFromFloat(*req.TotalAmount).Round(2)
	}
	prep := req.PrepMinutes
	if prep == nil {
		prep = domain.DerivePrepMinutes(req.Items)
	}

	now := s.clock.Now().UTC()
	order := domain.Order{
		ID:          s.genID.Generate(),
		TableNumber: req.TableNumber,
		Kind:        req.Kind,
		Items:       datatypes.JSONSlice[domain.Item](req.Items),
		TotalAmount: total,
		PrepMinutes: prep,
		State:       domain.StatePendiente,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if key := strings.TrimSpace(req.CustomerKey); key != "" {
		order.CustomerKey = &key
	}
	if req.Kind == domain.KindDelivery {
		address := strings.TrimSpace(req.DeliveryAddress)
		order.DeliveryAddress = &address
		order.DeliveryLat = req.DeliveryLat
		order.DeliveryLng = req.DeliveryLng
	}

	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		return domain.Order{}, db.Translate(err, "order", order.ID.String())
	}

	if order.Kind == domain.KindSalon && s.tables != nil {
		if _, err := s.tables.Occupy(ctx, order.TableNumber); err != nil {
			s.log.Warn("failed to occupy table",
				zap.Int("table_number", order.TableNumber),
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordOrderCreated(ctx, string(order.Kind))
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("kind", string(order.Kind)),
		zap.Int("table_number", order.TableNumber),
		zap.Int("items", len(order.Items)),
	)
	s.publisher.Publish(ctx, changefeed.Event{
		Type:  changefeed.EventInsert,
		Table: changefeed.TableOrders,
		New:   orderRow(order),
	})

	kitchen, bar := domain.StationsRequired(order.Items)
	if kitchen {
		s.notify(ctx, authorization.RoleCocinero, "Nuevo pedido", describe(order), order)
	}
	if bar {
		s.notify(ctx, authorization.RoleBartender, "Nuevo pedido", describe(order), order)
	}
	return order, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateOrderRequest) (domain.Order, error) {
	patch := req.Patch
	if err := domain.ValidatePatch(patch); err != nil {
		return domain.Order{}, err
	}
	if patch.TotalAmount != nil {
		return domain.Order{}, &apperror.ValidationError{Field: "total_amount", Message: "is immutable once computed", Err: domain.ErrImmutableTotal}
	}
	if patch.State != nil && domain.Automatic(*patch.State) {
		return domain.Order{}, apperror.Validation("state", fmt.Sprintf("%s is reached automatically", *patch.State))
	}

	current, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Order{}, err
	}
	// Reject an illegal state change before any field is written.
	if patch.State != nil && *patch.State != current.State && !domain.CanTransition(current.State, *patch.State) {
		return domain.Order{}, invalidTransition(current.State, *patch.State)
	}

	fields := map[string]any{}
	if patch.Items != nil {
		if current.State != domain.StatePendiente {
			return domain.Order{}, apperror.Conflict("items can only change while the order is pendiente", domain.ErrItemsLocked)
		}
		fields["items"] = datatypes.JSONSlice[domain.Item](*patch.Items)
	}
	if patch.TableNumber != nil {
		if current.Kind != domain.KindSalon || current.State != domain.StatePendiente {
			return domain.Order{}, apperror.Conflict("only pending salon orders can move table", domain.ErrInvalidTransition)
		}
		fields["table_number"] = *patch.TableNumber
	}
	if patch.DeliveryAddress != nil {
		if current.Kind != domain.KindDelivery {
			return domain.Order{}, apperror.Validation("delivery_address", "only delivery orders carry a delivery address")
		}
		fields["delivery_address"] = strings.TrimSpace(*patch.DeliveryAddress)
	}
	if patch.PrepMinutes != nil {
		if current.State.Terminal() {
			return domain.Order{}, invalidTransition(current.State, current.State)
		}
		fields["prep_minutes"] = *patch.PrepMinutes
	}

	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now().UTC()
		// Guarded on the state the checks above saw.
		ok, err := s.repo.Transition(ctx, s.db, current.ID, []domain.State{current.State}, current.State, fields)
		if err != nil {
			return domain.Order{}, db.Translate(err, "order", req.ID)
		}
		if !ok {
			return domain.Order{}, apperror.Conflict("order changed while it was being updated", domain.ErrInvalidTransition)
		}
		updated, err := s.load(ctx, req.ID)
		if err != nil {
			return domain.Order{}, err
		}
		s.publishUpdate(ctx, current, updated)
		current = updated
	}

	if patch.State == nil || *patch.State == current.State {
		return current, nil
	}

	switch *patch.State {
	case domain.StateEnPreparacion:
		return s.Confirm(ctx, domain.ConfirmOrderRequest{ID: req.ID})
	case domain.StateEntregado:
		return s.MarkDelivered(ctx, req.ID)
	case domain.StateRecibido:
		return s.ConfirmReceipt(ctx, req.ID)
	case domain.StateCancelado:
		reason := ""
		if patch.CancelReason != nil {
			reason = *patch.CancelReason
		}
		return s.Cancel(ctx, domain.CancelOrderRequest{ID: req.ID, Reason: reason})
	default:
		return domain.Order{}, invalidTransition(current.State, *patch.State)
	}
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) ([]domain.Order, error) {
	filter := domain.ListOrderFilter{
		TableNumber: req.TableNumber,
		CustomerKey: strings.TrimSpace(req.CustomerKey),
		Limit:       req.Limit,
	}
	if kind := domain.Kind(strings.TrimSpace(req.Kind)); kind != "" {
		if kind != domain.KindSalon && kind != domain.KindDelivery {
			return nil, apperror.Validation("kind", "must be salon or delivery")
		}
		filter.Kind = kind
	}
	for _, raw := range req.States {
		state := domain.State(strings.TrimSpace(raw))
		if !state.Valid() {
			return nil, apperror.Validation("state", fmt.Sprintf("unknown state %q", raw))
		}
		filter.States = append(filter.States, state)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, db.Translate(err, "order", "")
	}
	return collect(items), nil
}

// Confirm starts preparation. Ready flags are reset to the policy's initial
// values, so a delivery order never carries stale marks into the kitchen.
func (s *Service) Confirm(ctx context.Context, req domain.ConfirmOrderRequest) (domain.Order, error) {
	if req.PrepMinutes != nil && *req.PrepMinutes < 0 {
		return domain.Order{}, apperror.Validation("prep_minutes", "must be non-negative")
	}
	current, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now().UTC()
	kitchenReady, barReady := domain.InitialFlags(current.Items, s.policy)
	fields := map[string]any{
		"kitchen_ready": kitchenReady,
		"bar_ready":     barReady,
		"confirmed_at":  now,
		"updated_at":    now,
	}
	if req.PrepMinutes != nil {
		fields["prep_minutes"] = *req.PrepMinutes
	}

	updated, err := s.transition(ctx, current, domain.StateEnPreparacion, fields)
	if err != nil {
		return domain.Order{}, err
	}
	s.notifyCustomer(ctx, updated, "Pedido confirmado", "Tu pedido está en preparación")

	if domain.IsReady(updated) {
		return s.promote(ctx, updated)
	}
	return updated, nil
}

// MarkReady records one station's mark and promotes the order to listo once
// both marks are present.
func (s *Service) MarkReady(ctx context.Context, req domain.MarkReadyRequest) (domain.Order, error) {
	if !req.Station.Valid() {
		return domain.Order{}, &apperror.ValidationError{Field: "station", Message: "must be kitchen or bar", Err: domain.ErrInvalidStation}
	}
	current, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Order{}, err
	}
	if current.State != domain.StateEnPreparacion {
		return domain.Order{}, apperror.Conflict(
			fmt.Sprintf("order is %s, ready marks are only accepted en_preparacion", current.State),
			domain.ErrInvalidTransition,
		)
	}

	now := s.clock.Now().UTC()
	ok, err := s.repo.SetFlag(ctx, s.db, current.ID, req.Station, now)
	if err != nil {
		return domain.Order{}, db.Translate(err, "order", req.ID)
	}
	updated, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, apperror.Conflict(
			fmt.Sprintf("order is %s, ready marks are only accepted en_preparacion", updated.State),
			domain.ErrInvalidTransition,
		)
	}

	s.log.Info("station marked ready",
		zap.String("order_id", updated.ID.String()),
		zap.String("station", string(req.Station)),
	)
	s.publishUpdate(ctx, current, updated)

	if domain.IsReady(updated) {
		return s.promote(ctx, updated)
	}
	return updated, nil
}

func (s *Service) MarkDelivered(ctx context.Context, id string) (domain.Order, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	now := s.clock.Now().UTC()
	updated, err := s.transition(ctx, current, domain.StateEntregado, map[string]any{
		"delivered_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.notifyCustomer(ctx, updated, "Pedido entregado", "Confirmá la recepción de tu pedido")
	return updated, nil
}

// ConfirmReceipt is the customer's acknowledgement. An order whose bill was
// already confirmed is finalized on the spot.
func (s *Service) ConfirmReceipt(ctx context.Context, id string) (domain.Order, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	now := s.clock.Now().UTC()
	updated, err := s.transition(ctx, current, domain.StateRecibido, map[string]any{
		"received_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return domain.Order{}, err
	}

	settled, err := s.repo.IsSettled(ctx, s.db, updated.ID)
	if err != nil {
		s.log.Warn("failed to check bill settlement", zap.String("order_id", id), zap.Error(err))
		return updated, nil
	}
	if !settled {
		return updated, nil
	}
	return s.transition(ctx, updated, domain.StateFinalizado, map[string]any{
		"finalized_at": now,
		"updated_at":   now,
	})
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelOrderRequest) (domain.Order, error) {
	current, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now().UTC()
	fields := map[string]any{
		"cancelled_at": now,
		"updated_at":   now,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		fields["cancel_reason"] = reason
	}
	updated, err := s.transition(ctx, current, domain.StateCancelado, fields)
	if err != nil {
		return domain.Order{}, err
	}

	body := "Tu pedido fue cancelado"
	if updated.CancelReason != nil {
		body = body + ": " + *updated.CancelReason
	}
	s.notifyCustomer(ctx, updated, "Pedido cancelado", body)
	return updated, nil
}

func (s *Service) ListBillable(ctx context.Context, tableNumber int) ([]domain.Order, error) {
	if tableNumber <= 0 {
		return nil, apperror.Validation("table_number", "must be greater than zero")
	}
	items, err := s.repo.ListBillable(ctx, s.db, tableNumber)
	if err != nil {
		return nil, db.Translate(err, "order", "")
	}
	return collect(items), nil
}

func (s *Service) FinalizeSettled(ctx context.Context, ids []snowflake.ID) (int, error) {
	now := s.clock.Now().UTC()
	finalized := 0
	for _, id := range ids {
		current, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return finalized, db.Translate(err, "order", id.String())
		}
		if current == nil || current.State != domain.StateRecibido {
			continue
		}
		if _, err := s.transition(ctx, *current, domain.StateFinalizado, map[string]any{
			"finalized_at": now,
			"updated_at":   now,
		}); err != nil {
			if apperror.IsConflict(err) {
				continue
			}
			return finalized, err
		}
		finalized++
	}
	return finalized, nil
}

// transition applies a guarded state change: the row is only written while it
// is still in the state it was read in.
func (s *Service) transition(ctx context.Context, current domain.Order, target domain.State, fields map[string]any) (domain.Order, error) {
	if !domain.CanTransition(current.State, target) {
		return domain.Order{}, invalidTransition(current.State, target)
	}

	ok, err := s.repo.Transition(ctx, s.db, current.ID, []domain.State{current.State}, target, fields)
	if err != nil {
		return domain.Order{}, db.Translate(err, "order", current.ID.String())
	}
	updated, err := s.load(ctx, current.ID.String())
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, invalidTransition(updated.State, target)
	}

	s.lifecycle.OrderTransition(string(current.State), string(target))
	s.log.Info("order transitioned",
		zap.String("order_id", updated.ID.String()),
		zap.String("from", string(current.State)),
		zap.String("to", string(target)),
	)
	s.publishUpdate(ctx, current, updated)
	return updated, nil
}

// promote moves a fully marked order to listo and notifies whoever hands it off.
func (s *Service) promote(ctx context.Context, current domain.Order) (domain.Order, error) {
	now := s.clock.Now().UTC()
	promoted, err := s.repo.PromoteReady(ctx, s.db, current.ID, now)
	if err != nil {
		return domain.Order{}, db.Translate(err, "order", current.ID.String())
	}
	updated, err := s.load(ctx, current.ID.String())
	if err != nil {
		return domain.Order{}, err
	}
	if !promoted {
		// the concurrent mark won the promotion
		return updated, nil
	}

	s.lifecycle.OrderTransition(string(domain.StateEnPreparacion), string(domain.StateListo))
	s.log.Info("order ready", zap.String("order_id", updated.ID.String()))
	s.publishUpdate(ctx, current, updated)

	if updated.IsDelivery() {
		s.notify(ctx, authorization.RoleDelivery, "Pedido listo para despachar", describe(updated), updated)
	} else {
		s.notify(ctx, authorization.RoleMozo, "Pedido listo", describe(updated), updated)
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, rawID string) (domain.Order, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, db.Translate(err, "order", rawID)
	}
	if order == nil {
		return domain.Order{}, apperror.NotFound("order", rawID)
	}
	return *order, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, &apperror.ValidationError{Field: "id", Message: "invalid order id", Err: domain.ErrInvalidID}
	}
	return id, nil
}

func (s *Service) publishUpdate(ctx context.Context, before, after domain.Order) {
	s.publisher.Publish(ctx, changefeed.Event{
		Type:  changefeed.EventUpdate,
		Table: changefeed.TableOrders,
		Old:   orderRow(before),
		New:   orderRow(after),
	})
}

func (s *Service) notifyCustomer(ctx context.Context, order domain.Order, title, body string) {
	s.notify(ctx, authorization.RoleCliente, title, body, order)
}

func (s *Service) notify(ctx context.Context, role authorization.Role, title, body string, order domain.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendToRole(ctx, notification.Message{
		Role:  string(role),
		Title: title,
		Body:  body,
		Data: map[string]string{
			"order_id":     order.ID.String(),
			"table_number": strconv.Itoa(order.TableNumber),
			"state":        string(order.State),
		},
	})
}

func invalidTransition(from, to domain.State) error {
	return apperror.Conflict(fmt.Sprintf("order cannot move from %s to %s", from, to), domain.ErrInvalidTransition)
}

func describe(order domain.Order) string {
	if order.IsDelivery() {
		return fmt.Sprintf("Delivery #%s", order.ID.String())
	}
	return fmt.Sprintf("Mesa %d", order.TableNumber)
}

func orderRow(o domain.Order) changefeed.Row {
	row := changefeed.Row{
		"id":            o.ID,
		"table_number":  o.TableNumber,
		"kind":          string(o.Kind),
		"state":         string(o.State),
		"kitchen_ready": o.KitchenReady,
		"bar_ready":     o.BarReady,
		"updated_at":    o.UpdatedAt.Format(time.RFC3339Nano),
	}
	if o.CustomerKey != nil {
		row["customer_key"] = *o.CustomerKey
	}
	return row
}

func collect(items []*domain.Order) []domain.Order {
	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}
	return orders
}
