package realtime

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("realtime",
	fx.Provide(NewViews),
	fx.Provide(NewRegistry),
	fx.Invoke(registerShutdown),
)

func registerShutdown(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			r.Close()
			return nil
		},
	})
}
