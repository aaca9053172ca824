package catalog

import (
	"github.com/smallbiznis/streamhub/internal/cache"
	"github.com/smallbiznis/streamhub/internal/catalog/repository"
	"github.com/smallbiznis/streamhub/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(cache.NewCatalogCache),
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
