package fx

import (
	"guild-battle-tracker/internal/api"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/database"
	"guild-battle-tracker/internal/events"
	"guild-battle-tracker/internal/logger"
	"guild-battle-tracker/internal/repository"
	"guild-battle-tracker/internal/server"
	"guild-battle-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(
		fx.Annotate(repository.NewAnalysisRepository, fx.As(new(service.AnalysisStore))),
	),
	// api clients
	fx.Provide(
		fx.Annotate(api.NewSheetsClient, fx.As(new(service.SheetFetcher))),
		fx.Annotate(api.NewVisionClient, fx.As(new(service.TextRecognizer))),
		fx.Annotate(api.NewOpenAIClient, fx.As(new(service.Transcriber))),
	),
	fx.Provide(events.New),
	// svc
	fx.Provide(service.NewAnalysisService),
	fx.Provide(service.NewScreenshotService),
	// server
	fx.Provide(server.NewGuildBattleServer),
)
