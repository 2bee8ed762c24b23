package notification

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(NewTransport),
	fx.Provide(
		fx.Annotate(newNotifier, fx.As(new(Sender))),
	),
)

type TransportParams struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

func NewTransport(p TransportParams) Transport {
	switch p.Cfg.Notifications {
	case config.NotificationsRedis:
		if p.Redis == nil {
			p.Log.Warn("redis notifications requested without REDIS_ADDR, push disabled")
			return NoOpTransport{}
		}
		return NewRedisTransport(p.Redis)
	case config.NotificationsAMQP:
		t := NewAMQPTransport(p.Cfg.AMQPURL, p.Log)
		p.Lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return t.Close() },
		})
		return t
	default:
		return NoOpTransport{}
	}
}

type notifierParams struct {
	fx.In

	Transport Transport
	Clock     clock.Clock
	Log       *zap.Logger
	Lifecycle *metrics.Lifecycle `optional:"true"`
}

func newNotifier(p notifierParams) *Notifier {
	return NewNotifier(p.Transport, p.Clock, p.Log, p.Lifecycle)
}
