package eligibility

import (
	"github.com/smallbiznis/triviabees/internal/eligibility/repository"
	"github.com/smallbiznis/triviabees/internal/eligibility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("eligibility.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
