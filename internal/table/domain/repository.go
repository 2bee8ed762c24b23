package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Ensure inserts the table as free when it does not exist yet.
	Ensure(ctx context.Context, db *gorm.DB, number int, now time.Time) error
	FindByNumber(ctx context.Context, db *gorm.DB, number int) (*Table, error)
	List(ctx context.Context, db *gorm.DB) ([]*Table, error)
	// SetAvailable reports whether the flag actually changed.
	SetAvailable(ctx context.Context, db *gorm.DB, number int, available bool, now time.Time) (bool, error)
}
