package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stockflow/internal/application/auth"
	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/workflow"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/internal/infrastructure/metrics"
	"github.com/jhoicas/stockflow/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stockflow/internal/interfaces/http"
	"github.com/jhoicas/stockflow/pkg/config"
	"github.com/jhoicas/stockflow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner inventory.TxRunner
		repos    repository.UnitOfWork
	)
	switch cfg.App.Store {
	case "memory":
		store := memory.NewStore(cfg.Workflow.LockTimeout())
		txRunner, repos = store, store.UnitOfWork()
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
			log.Info().Msg("migraciones aplicadas")
		}
		txRunner, repos = postgres.NewTxRunner(pool, cfg.Workflow.LockTimeout()), postgres.NewUnitOfWork(pool)
	}

	// Eventos: se publican después del Commit; log y métricas son suscriptores.
	bus := events.NewBus()
	bus.Subscribe(events.LogSubscriber(log.Component("events")))
	var metricsReg *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsReg = metrics.New("stockflow")
		bus.Subscribe(metricsReg.Subscriber())
	}

	retryCfg := inventory.RetryConfig{
		MaxRetries: uint64(cfg.Workflow.RetryMax),
		BaseDelay:  cfg.Workflow.RetryBase(),
		MaxDelay:   cfg.Workflow.RetryMaxDelay(),
	}
	transferUC := inventory.NewTransferUseCase(txRunner, bus, retryCfg, log)
	inventoryUC := inventory.NewInventoryUseCase(txRunner, repos)
	requestUC := workflow.NewRequestUseCase(txRunner, repos, transferUC, bus, retryCfg, log)
	authUC := auth.NewAuthUseCase(repos.Users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stockflow API",
	}))

	deps := httpRouter.RouterDeps{
		AuthUC:      authUC,
		TransferUC:  transferUC,
		InventoryUC: inventoryUC,
		RequestUC:   requestUC,
		ServiceName: cfg.App.Name,
		JWTSecret:   cfg.JWT.Secret,
	}
	if metricsReg != nil {
		deps.MetricsHandler = metricsReg.Handler()
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
