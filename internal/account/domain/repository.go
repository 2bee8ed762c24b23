package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	LinkOrders(ctx context.Context, db *gorm.DB, accountID snowflake.ID, orderIDs []snowflake.ID, now time.Time) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByTipToken(ctx context.Context, db *gorm.DB, token string) (*Account, error)
	FindByOrderRef(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Account, error)
	// FindActiveByTable returns the latest non-terminal bill for a table.
	FindActiveByTable(ctx context.Context, db *gorm.DB, tableNumber int) (*Account, error)
	List(ctx context.Context, db *gorm.DB, filter ListAccountFilter) ([]*Account, error)
	LinkedOrderIDs(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]snowflake.ID, error)
	// UpdateTotals writes the derived amounts while the bill is in one of states.
	UpdateTotals(ctx context.Context, db *gorm.DB, account *Account, states []State) (bool, error)
	// Transition moves the bill to target only while it is in one of from.
	Transition(ctx context.Context, db *gorm.DB, account *Account, from []State, target State) (bool, error)
}

type ListAccountFilter struct {
	TableNumber *int
	States      []State
	Limit       int
}
