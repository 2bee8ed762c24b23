package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/menuya/internal/table/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, number int, now time.Time) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Table{Number: number, Available: true, UpdatedAt: now}).Error
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number int) (*domain.Table, error) {
	var table domain.Table
	err := db.WithContext(ctx).Raw(
		`SELECT number, available, updated_at FROM restaurant_tables WHERE number = ?`,
		number,
	).Scan(&table).Error
	if err != nil {
		return nil, err
	}
	if table.Number == 0 {
		return nil, nil
	}
	return &table, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Table, error) {
	var tables []*domain.Table
	err := db.WithContext(ctx).
		Model(&domain.Table{}).
		Order("number asc").
		Find(&tables).Error
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *repo) SetAvailable(ctx context.Context, db *gorm.DB, number int, available bool, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE restaurant_tables SET available = ?, updated_at = ? WHERE number = ? AND available <> ?`,
		available, now, number, available,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
