package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) LinkOrders(ctx context.Context, db *gorm.DB, accountID snowflake.ID, orderIDs []snowflake.ID, now time.Time) error {
	if len(orderIDs) == 0 {
		return nil
	}
	links := make([]domain.AccountOrder, 0, len(orderIDs))
	for _, id := range orderIDs {
		links = append(links, domain.AccountOrder{OrderID: id, AccountID: accountID, CreatedAt: now})
	}
	return db.WithContext(ctx).Create(&links).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByTipToken(ctx context.Context, db *gorm.DB, token string) (*domain.Account, error) {
	return r.first(db.WithContext(ctx).Where("tip_token = ?", token))
}

func (r *repo) FindByOrderRef(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Account, error) {
	return r.first(db.WithContext(ctx).Where("order_ref = ?", orderID))
}

func (r *repo) FindActiveByTable(ctx context.Context, db *gorm.DB, tableNumber int) (*domain.Account, error) {
	return r.first(db.WithContext(ctx).
		Where("table_number = ? AND state IN ?", tableNumber, domain.ActiveStates()).
		Order("created_at desc, id desc"))
}

func (r *repo) first(stmt *gorm.DB) (*domain.Account, error) {
	var accounts []domain.Account
	if err := stmt.Limit(1).Find(&accounts).Error; err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListAccountFilter) ([]*domain.Account, error) {
	var accounts []*domain.Account
	stmt := db.WithContext(ctx).Model(&domain.Account{})
	if filter.TableNumber != nil {
		stmt = stmt.Where("table_number = ?", *filter.TableNumber)
	}
	if len(filter.States) > 0 {
		stmt = stmt.Where("state IN ?", filter.States)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) LinkedOrderIDs(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.AccountOrder{}).
		Where("account_id = ?", accountID).
		Order("order_id").
		Pluck("order_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) UpdateTotals(ctx context.Context, db *gorm.DB, account *domain.Account, states []domain.State) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ? AND state IN ?", account.ID, states).
		Updates(totalsColumns(account))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, account *domain.Account, from []domain.State, target domain.State) (bool, error) {
	fields := totalsColumns(account)
	fields["state"] = target
	fields["tip_token"] = account.TipToken
	fields["paid_at"] = account.PaidAt
	fields["confirmed_at"] = account.ConfirmedAt

	result := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ? AND state IN ?", account.ID, from).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func totalsColumns(account *domain.Account) map[string]any {
	return map[string]any{
		"subtotal":         account.Subtotal,
		"discount_percent": account.DiscountPercent,
		"discount_amount":  account.DiscountAmount,
		"tip_percent":      account.TipPercent,
		"tip_amount":       account.TipAmount,
		"total":            account.Total,
		"updated_at":       account.UpdatedAt,
	}
}
