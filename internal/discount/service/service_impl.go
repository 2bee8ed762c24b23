package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"github.com/smallbiznis/menuya/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxGameLength = 64

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Percents  domain.PercentTable
	Publisher changefeed.Publisher `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	percents  domain.PercentTable
	publisher changefeed.Publisher
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = changefeed.NopPublisher{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("discount.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		percents:  p.Percents,
		publisher: publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) RecordGameResult(ctx context.Context, req domain.RecordGameResultRequest) (domain.Eligibility, error) {
	game := strings.ToLower(strings.TrimSpace(req.Game))
	if game == "" || len(game) > maxGameLength {
		return domain.Eligibility{}, &apperror.ValidationError{Field: "game", Message: "is required", Err: domain.ErrInvalidGame}
	}

	key := req.Identity.Key()
	if key == "" {
		s.log.Debug("game result without customer identity ignored", zap.String("game", game))
		return domain.Eligibility{}, nil
	}

	now := s.clock.Now().UTC()
	percent := s.percents.PercentFor(game)
	var (
		granted bool
		current *domain.Eligibility
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Ensure(ctx, tx, key, now); err != nil {
			return err
		}
		if err := s.repo.InsertResult(ctx, tx, &domain.GameResult{
			ID:          s.genID.Generate(),
			CustomerKey: key,
			Game:        game,
			Score:       req.Score,
			WonFirstTry: req.WonFirstTry,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if req.WonFirstTry {
			var err error
			granted, err = s.repo.Grant(ctx, tx, key, percent, game, now)
			if err != nil {
				return err
			}
		}
		var err error
		current, err = s.repo.Find(ctx, tx, key)
		return err
	})
	if err != nil {
		return domain.Eligibility{}, db.Translate(err, "discount", key)
	}
	if current == nil {
		return domain.Eligibility{}, apperror.NotFound("discount", key)
	}

	if granted {
		s.metrics.RecordDiscountGranted(ctx, game)
		s.log.Info("discount granted",
			zap.String("customer_key", key),
			zap.String("game", game),
			zap.Int("percent", percent),
		)
		s.publish(ctx, *current)
	}
	return *current, nil
}

func (s *Service) RecordLoss(ctx context.Context, identity domain.CustomerIdentity) (domain.Eligibility, error) {
	key := identity.Key()
	if key == "" {
		return domain.Eligibility{}, nil
	}

	now := s.clock.Now().UTC()
	var current *domain.Eligibility
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Ensure(ctx, tx, key, now); err != nil {
			return err
		}
		if err := s.repo.MarkLoss(ctx, tx, key, now); err != nil {
			return err
		}
		var err error
		current, err = s.repo.Find(ctx, tx, key)
		return err
	})
	if err != nil {
		return domain.Eligibility{}, db.Translate(err, "discount", key)
	}
	if current == nil {
		return domain.Eligibility{}, apperror.NotFound("discount", key)
	}

	s.log.Info("game loss recorded", zap.String("customer_key", key))
	s.publish(ctx, *current)
	return *current, nil
}

// Current never fails on an unresolved identity: it simply has no discount.
func (s *Service) Current(ctx context.Context, identity domain.CustomerIdentity) (domain.Current, error) {
	key := identity.Key()
	if key == "" {
		return domain.Current{}, nil
	}
	eligibility, err := s.repo.Find(ctx, s.db, key)
	if err != nil {
		return domain.Current{}, db.Translate(err, "discount", key)
	}
	if eligibility == nil || !eligibility.HasDiscount {
		return domain.Current{}, nil
	}
	return domain.Current{HasDiscount: true, Percent: eligibility.Percent}, nil
}

func (s *Service) Consume(ctx context.Context, identity domain.CustomerIdentity, accountID snowflake.ID) (bool, error) {
	key := identity.Key()
	if key == "" || accountID == 0 {
		return false, nil
	}

	now := s.clock.Now().UTC()
	consumed, err := s.repo.Consume(ctx, s.db, key, accountID, now)
	if err != nil {
		return false, db.Translate(err, "discount", key)
	}

	current, err := s.repo.Find(ctx, s.db, key)
	if err != nil {
		return false, db.Translate(err, "discount", key)
	}
	if consumed {
		s.metrics.RecordDiscountConsumed(ctx)
		s.log.Info("discount consumed",
			zap.String("customer_key", key),
			zap.String("account_id", accountID.String()),
		)
		if current != nil {
			s.publish(ctx, *current)
		}
		return true, nil
	}

	// A repeated consume by the same bill is a no-op that still holds.
	if current != nil && current.ConsumedBy != nil && *current.ConsumedBy == accountID {
		return true, nil
	}
	return false, nil
}

func (s *Service) ResetLoss(ctx context.Context, identity domain.CustomerIdentity) (domain.Eligibility, error) {
	key := identity.Key()
	if key == "" {
		return domain.Eligibility{}, &apperror.ValidationError{Field: "customer", Message: "email or anonymous key is required", Err: domain.ErrUnknownCustomer}
	}

	now := s.clock.Now().UTC()
	cleared, err := s.repo.ClearLoss(ctx, s.db, key, now)
	if err != nil {
		return domain.Eligibility{}, db.Translate(err, "discount", key)
	}
	current, err := s.repo.Find(ctx, s.db, key)
	if err != nil {
		return domain.Eligibility{}, db.Translate(err, "discount", key)
	}
	if current == nil {
		return domain.Eligibility{}, apperror.NotFound("discount", key)
	}
	if cleared {
		s.log.Info("loss flag reset", zap.String("customer_key", key))
		s.publish(ctx, *current)
	}
	return *current, nil
}

func (s *Service) ListResults(ctx context.Context, identity domain.CustomerIdentity, limit int) ([]domain.GameResult, error) {
	key := identity.Key()
	if key == "" {
		return []domain.GameResult{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.repo.ListResults(ctx, s.db, key, limit)
	if err != nil {
		return nil, db.Translate(err, "discount", key)
	}
	results := make([]domain.GameResult, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		results = append(results, *item)
	}
	return results, nil
}

func (s *Service) publish(ctx context.Context, e domain.Eligibility) {
	s.publisher.Publish(ctx, changefeed.Event{
		Type:  changefeed.EventUpdate,
		Table: changefeed.TableDiscounts,
		New: changefeed.Row{
			"customer_key": e.CustomerKey,
			"has_discount": e.HasDiscount,
			"percent":      e.Percent,
			"has_any_loss": e.HasAnyLoss,
		},
	})
}
