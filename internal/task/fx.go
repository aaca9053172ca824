package task

import (
	"github.com/smallbiznis/streamhub/internal/task/repository"
	"github.com/smallbiznis/streamhub/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
