package realtime

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/streamhub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("realtime",
	fx.Provide(NewHub),
	fx.Provide(func(h *Hub) Subscriber { return h }),
	fx.Provide(newPublisher),
)

// newPublisher routes changes through Redis when a client is configured so
// every instance sees them.
func newPublisher(lc fx.Lifecycle, hub *Hub, client *redis.Client, cfg config.Config, log *zap.Logger) Publisher {
	if client == nil {
		return hub
	}
	bridge := NewRedisBridge(client, hub, cfg.Realtime.RedisChannel, log)
	lc.Append(fx.Hook{
		OnStart: bridge.Start,
		OnStop:  bridge.Stop,
	})
	return bridge
}
