package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var orders []domain.Order
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOrderFilter) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.TableNumber != nil {
		stmt = stmt.Where("table_number = ?", *filter.TableNumber)
	}
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if len(filter.States) > 0 {
		stmt = stmt.Where("state IN ?", filter.States)
	}
	if filter.CustomerKey != "" {
		stmt = stmt.Where("customer_key = ?", filter.CustomerKey)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	err := stmt.
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.State, target domain.State, fields map[string]any) (bool, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["state"] = target

	result := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) SetFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, station domain.Station, now time.Time) (bool, error) {
	// A single column write: kitchen and bar marks never overwrite each other.
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET `+station.Column()+` = ?, updated_at = ? WHERE id = ? AND state = ?`,
		true, now, id, domain.StateEnPreparacion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) PromoteReady(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET state = ?, ready_at = ?, updated_at = ?
		 WHERE id = ? AND state = ? AND kitchen_ready = ? AND bar_ready = ?`,
		domain.StateListo, now, now, id, domain.StateEnPreparacion, true, true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ListBillable(ctx context.Context, db *gorm.DB, tableNumber int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("table_number = ? AND state IN ?", tableNumber, domain.BillableStates()).
		Where("NOT EXISTS (SELECT 1 FROM account_orders ao WHERE ao.order_id = orders.id)").
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) IsSettled(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM account_orders ao
		 JOIN accounts a ON a.id = ao.account_id
		 WHERE ao.order_id = ? AND a.state = ?`,
		id, "confirmado",
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
