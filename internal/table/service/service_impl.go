package service

import (
	"context"
	"strconv"

	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/table/domain"
	"github.com/smallbiznis/menuya/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// deliverySentinel never maps to a physical table.
const deliverySentinel = 9999

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Publisher changefeed.Publisher `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	publisher changefeed.Publisher
}

func New(p Params) domain.Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = changefeed.NopPublisher{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("table.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: publisher,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Table, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, db.Translate(err, "table", "")
	}
	tables := make([]domain.Table, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tables = append(tables, *item)
	}
	return tables, nil
}

func (s *Service) Get(ctx context.Context, number int) (domain.Table, error) {
	if err := validateNumber(number); err != nil {
		return domain.Table{}, err
	}
	table, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return domain.Table{}, db.Translate(err, "table", strconv.Itoa(number))
	}
	if table == nil {
		return domain.Table{}, apperror.NotFound("table", strconv.Itoa(number))
	}
	return *table, nil
}

// Occupy marks the table taken, registering it on first use.
func (s *Service) Occupy(ctx context.Context, number int) (domain.Table, error) {
	return s.setAvailable(ctx, number, false)
}

// Release marks the table free again.
func (s *Service) Release(ctx context.Context, number int) (domain.Table, error) {
	return s.setAvailable(ctx, number, true)
}

func (s *Service) setAvailable(ctx context.Context, number int, available bool) (domain.Table, error) {
	if err := validateNumber(number); err != nil {
		return domain.Table{}, err
	}

	now := s.clock.Now().UTC()
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Ensure(ctx, tx, number, now); err != nil {
			return err
		}
		var err error
		changed, err = s.repo.SetAvailable(ctx, tx, number, available, now)
		return err
	})
	if err != nil {
		return domain.Table{}, db.Translate(err, "table", strconv.Itoa(number))
	}

	table, err := s.Get(ctx, number)
	if err != nil {
		return domain.Table{}, err
	}
	if changed {
		s.log.Info("table availability changed",
			zap.Int("table_number", number),
			zap.Bool("available", available),
		)
		s.publisher.Publish(ctx, changefeed.Event{
			Type:  changefeed.EventUpdate,
			Table: changefeed.TableTables,
			Old:   changefeed.Row{"number": number, "available": !available},
			New:   changefeed.Row{"number": number, "available": available},
		})
	}
	return table, nil
}

func validateNumber(number int) error {
	if number <= 0 || number == deliverySentinel {
		return &apperror.ValidationError{Field: "table_number", Message: "must be a real table number", Err: domain.ErrInvalidNumber}
	}
	return nil
}
