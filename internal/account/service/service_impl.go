package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/menuya/internal/account/domain"
	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/identity"
	"github.com/smallbiznis/menuya/internal/lock"
	"github.com/smallbiznis/menuya/internal/notification"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
	"github.com/smallbiznis/menuya/internal/receipt"
	tabledomain "github.com/smallbiznis/menuya/internal/table/domain"
	"github.com/smallbiznis/menuya/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	tableLockTTL  = 10 * time.Second
	tableLockWait = 3 * time.Second
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	OrderRepo orderdomain.Repository
	Discounts discountdomain.Service
	Orders    orderdomain.Service  `optional:"true"`
	Tables    tabledomain.Service  `optional:"true"`
	Receipts  receipt.Generator    `optional:"true"`
	Notifier  notification.Sender  `optional:"true"`
	Locker    *lock.Locker         `optional:"true"`
	Publisher changefeed.Publisher `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
	Lifecycle *metrics.Lifecycle   `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	orderRepo orderdomain.Repository
	discounts discountdomain.Service
	orders    orderdomain.Service
	tables    tabledomain.Service
	receipts  receipt.Generator
	notifier  notification.Sender
	locker    *lock.Locker
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
		log:       p.Log.Named("account.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orderRepo: p.OrderRepo,
		discounts: p.Discounts,
		orders:    p.Orders,
		tables:    p.Tables,
		receipts:  p.Receipts,
		notifier:  p.Notifier,
		locker:    p.Locker,
		publisher: publisher,
		metrics:   p.Metrics,
		lifecycle: p.Lifecycle,
	}
}

// GetOrCreateActive returns the open bill for a table, composing a new one
// from the table's billable orders when none is open.
func (s *Service) GetOrCreateActive(ctx context.Context, req domain.GetOrCreateRequest) (domain.Account, error) {
	if req.TableNumber <= 0 || req.TableNumber == domain.DeliveryTableNumber {
		return domain.Account{}, apperror.Validation("table_number", "must be a real table number")
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "account:table:"+strconv.Itoa(req.TableNumber), tableLockTTL, tableLockWait)
		if err != nil {
			s.log.Warn("table lock unavailable, relying on storage constraints",
				zap.Int("table_number", req.TableNumber),
				zap.Error(err),
			)
		}
		defer release()
	}

	existing, err := s.repo.FindActiveByTable(ctx, s.db, req.TableNumber)
	if err != nil {
		return domain.Account{}, db.Translate(err, "account", "")
	}
	if existing != nil {
		return *existing, nil
	}

	current, err := s.discounts.Current(ctx, req.Customer)
	if err != nil {
		return domain.Account{}, err
	}

	account := s.newAccount(req.TableNumber, req.Customer)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders, err := s.orderRepo.ListBillable(ctx, tx, req.TableNumber)
		if err != nil {
			return err
		}
		s.compose(&account, orders, current)
		if err := s.repo.Insert(ctx, tx, &account); err != nil {
			return err
		}
		return s.repo.LinkOrders(ctx, tx, account.ID, orderIDs(orders), account.CreatedAt)
	})
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Account{}, db.Translate(err, "account", "")
		}
		// A concurrent request opened the bill first.
		winner, findErr := s.repo.FindActiveByTable(ctx, s.db, req.TableNumber)
		if findErr != nil {
			return domain.Account{}, db.Translate(findErr, "account", "")
		}
		if winner == nil {
			return domain.Account{}, apperror.Conflict("orders are already billed", domain.ErrAlreadyBilled)
		}
		return *winner, nil
	}

	s.created(ctx, account)
	return account, nil
}

// GetOrCreateForDeliveryOrder keeps one bill per delivery order.
func (s *Service) GetOrCreateForDeliveryOrder(ctx context.Context, req domain.DeliveryAccountRequest) (domain.Account, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(req.OrderID))
	if err != nil || orderID == 0 {
		return domain.Account{}, &apperror.ValidationError{Field: "order_id", Message: "invalid order id", Err: domain.ErrInvalidID}
	}

	existing, err := s.repo.FindByOrderRef(ctx, s.db, orderID)
	if err != nil {
		return domain.Account{}, db.Translate(err, "account", "")
	}
	if existing != nil {
		return *existing, nil
	}

	order, err := s.orderRepo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.Account{}, db.Translate(err, "order", req.OrderID)
	}
	if order == nil {
		return domain.Account{}, apperror.NotFound("order", req.OrderID)
	}
	if !order.IsDelivery() {
		return domain.Account{}, apperror.Validation("order_id", "is not a delivery order")
	}
	if !billable(order.State) {
		return domain.Account{}, apperror.Conflict(
			fmt.Sprintf("order is %s and cannot be billed yet", order.State),
			domain.ErrNothingToBill,
		)
	}

	current, err := s.discounts.Current(ctx, req.Customer)
	if err != nil {
		return domain.Account{}, err
	}

	account := s.newAccount(domain.DeliveryTableNumber, req.Customer)
	account.OrderRef = &orderID
	s.compose(&account, []*orderdomain.Order{order}, current)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &account); err != nil {
			return err
		}
		return s.repo.LinkOrders(ctx, tx, account.ID, []snowflake.ID{orderID}, account.CreatedAt)
	})
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Account{}, db.Translate(err, "account", "")
		}
		winner, findErr := s.repo.FindByOrderRef(ctx, s.db, orderID)
		if findErr != nil {
			return domain.Account{}, db.Translate(findErr, "account", "")
		}
		if winner == nil {
			return domain.Account{}, apperror.Conflict("order is already billed", domain.ErrAlreadyBilled)
		}
		return *winner, nil
	}

	s.created(ctx, account)
	return account, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, req domain.ListAccountRequest) ([]domain.Account, error) {
	filter := domain.ListAccountFilter{
		TableNumber: req.TableNumber,
		Limit:       req.Limit,
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
		return nil, db.Translate(err, "account", "")
	}
	accounts := make([]domain.Account, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		accounts = append(accounts, *item)
	}
	return accounts, nil
}

// EnableTip opens the tip step and stores the token a QR code carries.
func (s *Service) EnableTip(ctx context.Context, req domain.EnableTipRequest) (domain.Account, error) {
	current, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Account{}, err
	}

	token := strings.TrimSpace(req.Token)
	if current.State == domain.StatePropinaHabilitada && current.TipToken != nil {
		if token == "" || token == *current.TipToken {
			return current, nil
		}
	}
	if token == "" {
		token = uuid.NewString()
	}

	next := current
	next.TipToken = &token
	next.UpdatedAt = s.clock.Now().UTC()
	return s.transition(ctx, current, next, []domain.State{domain.StateSolicitada}, domain.StatePropinaHabilitada)
}

func (s *Service) SetTipPercent(ctx context.Context, req domain.SetTipRequest) (domain.Account, error) {
	if err := validateTip(req.Percent); err != nil {
		return domain.Account{}, err
	}
	current, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Account{}, err
	}
	return s.setTip(ctx, current, req.Percent)
}

func (s *Service) SetTipPercentByToken(ctx context.Context, req domain.SetTipByTokenRequest) (domain.Account, error) {
	if err := validateTip(req.Percent); err != nil {
		return domain.Account{}, err
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return domain.Account{}, apperror.Validation("token", "is required")
	}
	current, err := s.repo.FindByTipToken(ctx, s.db, token)
	if err != nil {
		return domain.Account{}, db.Translate(err, "account", "")
	}
	if current == nil {
		return domain.Account{}, apperror.NotFound("account", "tip token")
	}
	return s.setTip(ctx, *current, req.Percent)
}

// Pay recomputes the bill and moves it to pago_pendiente. The discount is
// consumed with the bill id as idempotency key; when another bill already
// took it, it is stripped here so it is never applied twice.
func (s *Service) Pay(ctx context.Context, id string) (domain.Account, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if current.State == domain.StatePagoPendiente {
		return current, nil
	}
	if !inStates(current.State, domain.PayableStates()) {
		return domain.Account{}, invalidTransition(current.State, domain.StatePagoPendiente)
	}

	next := current
	if next.DiscountPercent > 0 {
		applied := false
		if next.CustomerKey != nil {
			applied, err = s.discounts.Consume(ctx, discountdomain.IdentityFromKey(*next.CustomerKey), next.ID)
			if err != nil {
				return domain.Account{}, err
			}
		}
		if !applied {
			s.log.Warn("discount no longer held, removing it from the bill",
				zap.String("account_id", next.ID.String()),
				zap.Int("discount_percent", next.DiscountPercent),
			)
			next.StripDiscount()
		}
	}

	now := s.clock.Now().UTC()
	next.Recompute()
	next.PaidAt = &now
	next.UpdatedAt = now

	updated, err := s.transition(ctx, current, next, domain.PayableStates(), domain.StatePagoPendiente)
	if err != nil {
		latest, loadErr := s.load(ctx, id)
		if loadErr == nil && latest.State == domain.StatePagoPendiente {
			return latest, nil
		}
		return domain.Account{}, err
	}

	s.notify(ctx, authorization.RoleMozo, "Pago pendiente", fmt.Sprintf("%s pagó %s", where(updated), updated.Total.StringFixed(2)), updated)
	return updated, nil
}

// ConfirmPayment closes the bill. The cascade that follows never rolls the
// confirmation back; its failures come back as warnings.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (domain.ConfirmResult, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	if current.State != domain.StatePagoPendiente {
		return domain.ConfirmResult{}, invalidTransition(current.State, domain.StateConfirmado)
	}

	now := s.clock.Now().UTC()
	next := current
	next.Recompute()
	next.ConfirmedAt = &now
	next.UpdatedAt = now

	updated, err := s.transition(ctx, current, next, []domain.State{domain.StatePagoPendiente}, domain.StateConfirmado)
	if err != nil {
		return domain.ConfirmResult{}, err
	}

	result := domain.ConfirmResult{Account: updated}
	if !updated.IsDelivery() && s.tables != nil {
		if _, err := s.tables.Release(ctx, updated.TableNumber); err != nil {
			result.Warnings = append(result.Warnings, "table release failed: "+err.Error())
		}
	}

	if s.orders != nil {
		ids, err := s.repo.LinkedOrderIDs(ctx, s.db, updated.ID)
		if err != nil {
			result.Warnings = append(result.Warnings, "linked orders lookup failed: "+err.Error())
		} else if _, err := s.orders.FinalizeSettled(ctx, ids); err != nil {
			result.Warnings = append(result.Warnings, "order finalization failed: "+err.Error())
		}
	}

	if s.receipts != nil {
		rec, err := s.receipts.Generate(ctx, receiptData(updated))
		if err != nil {
			result.Warnings = append(result.Warnings, "receipt generation failed: "+err.Error())
		} else {
			result.ReceiptPath = rec.Path
		}
	}

	for _, warning := range result.Warnings {
		s.log.Warn("payment confirmation side effect failed",
			zap.String("account_id", updated.ID.String()),
			zap.String("warning", warning),
		)
	}

	kind := "salon"
	if updated.IsDelivery() {
		kind = "delivery"
	}
	s.metrics.RecordAccountConfirmed(ctx, kind, updated.Total.InexactFloat64(), updated.TipAmount.InexactFloat64())
	s.notify(ctx, authorization.RoleCliente, "Pago confirmado", "¡Gracias por tu visita!", updated)
	return result, nil
}

func (s *Service) setTip(ctx context.Context, current domain.Account, percent int) (domain.Account, error) {
	if !inStates(current.State, domain.TipStates()) {
		return domain.Account{}, apperror.Conflict(
			fmt.Sprintf("tip cannot change while the bill is %s", current.State),
			domain.ErrInvalidTransition,
		)
	}

	next := current
	next.TipPercent = percent
	next.Recompute()
	next.UpdatedAt = s.clock.Now().UTC()

	ok, err := s.repo.UpdateTotals(ctx, s.db, &next, domain.TipStates())
	if err != nil {
		return domain.Account{}, db.Translate(err, "account", current.ID.String())
	}
	updated, err := s.load(ctx, current.ID.String())
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, apperror.Conflict(
			fmt.Sprintf("tip cannot change while the bill is %s", updated.State),
			domain.ErrInvalidTransition,
		)
	}

	s.log.Info("tip updated",
		zap.String("account_id", updated.ID.String()),
		zap.Int("tip_percent", percent),
		zap.String("total", updated.Total.StringFixed(2)),
	)
	s.publishUpdate(ctx, current, updated)
	return updated, nil
}

// transition writes next guarded on the bill still being in one of from.
func (s *Service) transition(ctx context.Context, current, next domain.Account, from []domain.State, target domain.State) (domain.Account, error) {
	if !inStates(current.State, from) {
		return domain.Account{}, invalidTransition(current.State, target)
	}

	ok, err := s.repo.Transition(ctx, s.db, &next, from, target)
	if err != nil {
		return domain.Account{}, db.Translate(err, "account", current.ID.String())
	}
	updated, err := s.load(ctx, current.ID.String())
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, invalidTransition(updated.State, target)
	}

	s.lifecycle.AccountTransition(string(current.State), string(target))
	s.log.Info("account transitioned",
		zap.String("account_id", updated.ID.String()),
		zap.String("from", string(current.State)),
		zap.String("to", string(target)),
		zap.String("total", updated.Total.StringFixed(2)),
	)
	s.publishUpdate(ctx, current, updated)
	return updated, nil
}

func (s *Service) newAccount(tableNumber int, customer discountdomain.CustomerIdentity) domain.Account {
	now := s.clock.Now().UTC()
	account := domain.Account{
		ID:            s.genID.Generate(),
		TableNumber:   tableNumber,
		CustomerName:  strings.TrimSpace(customer.Name),
		CustomerEmail: strings.TrimSpace(customer.Email),
		CustomerDNI:   identity.NormalizeDNI(customer.DNI),
		State:         domain.StateSolicitada,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if key := customer.Key(); key != "" {
		account.CustomerKey = &key
	}
	return account
}

// compose snapshots the orders' items into the bill and applies the
// customer's discount to the aggregated subtotal.
func (s *Service) compose(account *domain.Account, orders []*orderdomain.Order, current discountdomain.Current) {
	items := make([]domain.LineItem, 0)
	for _, order := range orders {
		if order == nil {
			continue
		}
		for _, item := range order.Items {
			items = append(items, domain.LineItem{
				OrderID:   order.ID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Amount:    item.Amount(),
			})
		}
	}

	account.LineItems = datatypes.JSONSlice[domain.LineItem](items)
	account.Subtotal = domain.Subtotal(items)
	if current.HasDiscount {
		account.DiscountAmount = domain.DiscountFor(account.Subtotal, current.Percent)
		if account.DiscountAmount.IsPositive() {
			account.DiscountPercent = current.Percent
		}
	}
	account.Recompute()
}

func (s *Service) created(ctx context.Context, account domain.Account) {
	s.lifecycle.AccountTransition("none", string(domain.StateSolicitada))
	s.log.Info("account opened",
		zap.String("account_id", account.ID.String()),
		zap.Int("table_number", account.TableNumber),
		zap.Int("line_items", len(account.LineItems)),
		zap.Int("discount_percent", account.DiscountPercent),
		zap.String("total", account.Total.StringFixed(2)),
	)
	s.publisher.Publish(ctx, changefeed.Event{
		Type:  changefeed.EventInsert,
		Table: changefeed.TableAccounts,
		New:   accountRow(account),
	})
	s.notify(ctx, authorization.RoleMozo, "Cuenta solicitada", where(account), account)
}

func (s *Service) load(ctx context.Context, rawID string) (domain.Account, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.Account{}, &apperror.ValidationError{Field: "id", Message: "invalid account id", Err: domain.ErrInvalidID}
	}
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Account{}, db.Translate(err, "account", rawID)
	}
	if account == nil {
		return domain.Account{}, apperror.NotFound("account", rawID)
	}
	return *account, nil
}

func (s *Service) publishUpdate(ctx context.Context, before, after domain.Account) {
	s.publisher.Publish(ctx, changefeed.Event{
		Type:  changefeed.EventUpdate,
		Table: changefeed.TableAccounts,
		Old:   accountRow(before),
		New:   accountRow(after),
	})
}

func (s *Service) notify(ctx context.Context, role authorization.Role, title, body string, account domain.Account) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendToRole(ctx, notification.Message{
		Role:  string(role),
		Title: title,
		Body:  body,
		Data: map[string]string{
			"account_id":   account.ID.String(),
			"table_number": strconv.Itoa(account.TableNumber),
			"state":        string(account.State),
		},
	})
}

func receiptData(account domain.Account) receipt.Data {
	lines := make([]receipt.Line, 0, len(account.LineItems))
	for _, item := range account.LineItems {
		lines = append(lines, receipt.Line{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Amount:    item.Amount.StringFixed(2),
		})
	}
	data := receipt.Data{
		AccountID:   account.ID.String(),
		TableNumber: account.TableNumber,
		Delivery:    account.IsDelivery(),
		Customer: receipt.Customer{
			Name:  account.CustomerName,
			Email: account.CustomerEmail,
			DNI:   account.CustomerDNI,
		},
		LineItems:       lines,
		Subtotal:        account.Subtotal.StringFixed(2),
		DiscountPercent: account.DiscountPercent,
		Discount:        account.DiscountAmount.StringFixed(2),
		TipPercent:      account.TipPercent,
		Tip:             account.TipAmount.StringFixed(2),
		Total:           account.Total.StringFixed(2),
	}
	if account.OrderRef != nil {
		data.OrderID = account.OrderRef.String()
	}
	if account.ConfirmedAt != nil {
		data.PaidAt = *account.ConfirmedAt
	}
	return data
}

func accountRow(a domain.Account) changefeed.Row {
	return changefeed.Row{
		"id":           a.ID,
		"table_number": a.TableNumber,
		"state":        string(a.State),
		"total":        a.Total.StringFixed(2),
		"updated_at":   a.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func validateTip(percent int) error {
	if percent < 0 || percent > 100 {
		return &apperror.ValidationError{Field: "tip_percent", Message: "must be within [0, 100]", Err: domain.ErrInvalidTip}
	}
	return nil
}

func invalidTransition(from, to domain.State) error {
	return apperror.Conflict(fmt.Sprintf("account cannot move from %s to %s", from, to), domain.ErrInvalidTransition)
}

func inStates(state domain.State, states []domain.State) bool {
	for _, candidate := range states {
		if candidate == state {
			return true
		}
	}
	return false
}

func billable(state orderdomain.State) bool {
	for _, candidate := range orderdomain.BillableStates() {
		if candidate == state {
			return true
		}
	}
	return false
}

func orderIDs(orders []*orderdomain.Order) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(orders))
	for _, order := range orders {
		if order != nil {
			ids = append(ids, order.ID)
		}
	}
	return ids
}

func where(account domain.Account) string {
	if account.IsDelivery() {
		return "Delivery"
	}
	return fmt.Sprintf("Mesa %d", account.TableNumber)
}
