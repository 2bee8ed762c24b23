package changefeed

import (
	"context"

	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("changefeed",
	fx.Provide(NewDispatcher),
	fx.Provide(func(d *Dispatcher) Feed { return d }),
	fx.Provide(providePublisher),
	fx.Invoke(startListener),
)

// providePublisher publishes in-process unless Postgres triggers emit the events.
func providePublisher(cfg config.Config, d *Dispatcher) Publisher {
	if cfg.ChangeFeed == config.ChangeFeedPostgres && cfg.DBType == "postgres" {
		return NopPublisher{}
	}
	return d
}

func startListener(lc fx.Lifecycle, cfg config.Config, d *Dispatcher, log *zap.Logger) {
	if cfg.ChangeFeed != config.ChangeFeedPostgres || cfg.DBType != "postgres" {
		return
	}
	listener := NewPostgresListener(db.PostgresDSN(cfg), d, log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return listener.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return listener.Stop(ctx) },
	})
}
