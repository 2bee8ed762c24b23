package receipt

import (
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("receipt",
	fx.Provide(
		fx.Annotate(newService, fx.As(new(Generator))),
	),
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Lifecycle *metrics.Lifecycle `optional:"true"`
}

func newService(p Params) *Service {
	return NewService(p.Cfg.RestaurantName, PDFRenderer{}, FileStore{Dir: p.Cfg.ReceiptDir}, p.Log, p.Lifecycle)
}
