package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Ensure(ctx context.Context, db *gorm.DB, key string, now time.Time) error
	Find(ctx context.Context, db *gorm.DB, key string) (*Eligibility, error)
	InsertResult(ctx context.Context, db *gorm.DB, result *GameResult) error
	ListResults(ctx context.Context, db *gorm.DB, key string, limit int) ([]*GameResult, error)
	// Grant sets the discount only when none is held and no loss was recorded.
	Grant(ctx context.Context, db *gorm.DB, key string, percent int, game string, now time.Time) (bool, error)
	MarkLoss(ctx context.Context, db *gorm.DB, key string, now time.Time) error
	ClearLoss(ctx context.Context, db *gorm.DB, key string, now time.Time) (bool, error)
	// Consume clears a held discount and records the consuming bill.
	Consume(ctx context.Context, db *gorm.DB, key string, accountID snowflake.ID, now time.Time) (bool, error)
}
