package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListOrderFilter) ([]*Order, error)
	// Transition moves the order to target only while it is in one of from.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from []State, target State, fields map[string]any) (bool, error)
	// SetFlag writes a single station flag while the order is en_preparacion.
	SetFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, station Station, now time.Time) (bool, error)
	// PromoteReady moves the order to listo only when both flags are set.
	PromoteReady(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	ListBillable(ctx context.Context, db *gorm.DB, tableNumber int) ([]*Order, error)
	// IsSettled reports whether the order is linked to a confirmed bill.
	IsSettled(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type ListOrderFilter struct {
	TableNumber *int
	Kind        Kind
	States      []State
	CustomerKey string
	Limit       int
}
