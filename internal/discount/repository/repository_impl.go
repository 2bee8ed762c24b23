package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/discount/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, key string, now time.Time) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Eligibility{
			CustomerKey: key,
			CreatedAt:   now,
			UpdatedAt:   now,
		}).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, key string) (*domain.Eligibility, error) {
	var eligibility domain.Eligibility
	err := db.WithContext(ctx).Raw(
		`SELECT customer_key, has_discount, percent, has_any_loss, granted_game, consumed_by, created_at, updated_at
		 FROM discount_eligibility WHERE customer_key = ?`,
		key,
	).Scan(&eligibility).Error
	if err != nil {
		return nil, err
	}
	if eligibility.CustomerKey == "" {
		return nil, nil
	}
	return &eligibility, nil
}

func (r *repo) InsertResult(ctx context.Context, db *gorm.DB, result *domain.GameResult) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO game_results (id, customer_key, game, score, won_first_try, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.CustomerKey,
		result.Game,
		result.Score,
		result.WonFirstTry,
		result.CreatedAt,
	).Error
}

func (r *repo) ListResults(ctx context.Context, db *gorm.DB, key string, limit int) ([]*domain.GameResult, error) {
	var results []*domain.GameResult
	stmt := db.WithContext(ctx).
		Model(&domain.GameResult{}).
		Where("customer_key = ?", key).
		Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repo) Grant(ctx context.Context, db *gorm.DB, key string, percent int, game string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discount_eligibility
		 SET has_discount = ?, percent = ?, granted_game = ?, consumed_by = NULL, updated_at = ?
		 WHERE customer_key = ? AND has_discount = ? AND has_any_loss = ?`,
		true, percent, game, now, key, false, false,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) MarkLoss(ctx context.Context, db *gorm.DB, key string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE discount_eligibility SET has_any_loss = ?, updated_at = ? WHERE customer_key = ?`,
		true, now, key,
	).Error
}

func (r *repo) ClearLoss(ctx context.Context, db *gorm.DB, key string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discount_eligibility SET has_any_loss = ?, updated_at = ? WHERE customer_key = ? AND has_any_loss = ?`,
		false, now, key, true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Consume(ctx context.Context, db *gorm.DB, key string, accountID snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discount_eligibility
		 SET has_discount = ?, percent = 0, consumed_by = ?, updated_at = ?
		 WHERE customer_key = ? AND has_discount = ?`,
		false, accountID, now, key, true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
