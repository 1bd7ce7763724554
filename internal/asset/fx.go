package asset

import (
	"github.com/smallbiznis/bizhub/internal/asset/repository"
	"github.com/smallbiznis/bizhub/internal/asset/service"
	"go.uber.org/fx"
)

var Module = fx.Module("asset.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
