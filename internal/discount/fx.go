package discount

import (
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/discount/repository"
	"github.com/smallbiznis/menuya/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(providePercentTable),
	fx.Provide(service.New),
)

func providePercentTable(holder *config.DiscountConfigHolder) domain.PercentTable {
	return holder
}
