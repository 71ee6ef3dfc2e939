package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/config"
	"github.com/iliyamo/cityinfo-api/internal/database"
	"github.com/iliyamo/cityinfo-api/internal/handler"
	"github.com/iliyamo/cityinfo-api/internal/logger"
	"github.com/iliyamo/cityinfo-api/internal/mail"
	"github.com/iliyamo/cityinfo-api/internal/middleware"
	"github.com/iliyamo/cityinfo-api/internal/queue"
	"github.com/iliyamo/cityinfo-api/internal/repository"
	"github.com/iliyamo/cityinfo-api/internal/router"
	"github.com/iliyamo/cityinfo-api/internal/service"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg := config.Load()
	logCfg := config.LoadLogConfig()
	logger.Init(logger.Config{Env: cfg.Env, Level: logCfg.Level, File: logCfg.File, ServiceName: "cityinfo-api"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, "up"); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting disabled and cache in memory")
	} else {
		defer rdb.Close()
	}

	key, err := cfg.Auth.SigningKey()
	if err != nil {
		return err
	}
	tokens := utils.TokenOptions{Key: key, Issuer: cfg.Auth.Issuer, Audience: cfg.Auth.Audience, TTL: cfg.Auth.TokenTTL}
	authenticator, err := service.NewAuthenticator(repository.NewUserRepo(db), tokens, cfg.BcryptCost)
	if err != nil {
		return err
	}

	// Deletion notices go through RabbitMQ when enabled; the consumer
	// delivers them with the configured sender.
	sender := mail.New(config.LoadMailConfig())
	notifier := sender
	broker := config.LoadBrokerConfig()
	if broker.Enabled {
		notifier = service.NewMailPublisher(broker.URL, broker.MailQueue, sender)
		consumer := queue.NewMailConsumer(broker.URL, broker.MailQueue, sender)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("mail consumer stopped", logger.Err(err))
			}
		}()
	}

	metrics, err := middleware.NewMetrics(db)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(cfg.IsProd())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())

	store := repository.NewStore(db)
	sessions := func() repository.CityInfoRepository { return store.Session() }
	files := config.LoadFilesConfig()
	routes := router.CityRoutes{
		Cities:           handler.NewCityHandler(sessions, cfg.DefaultPageSize, cfg.MaxPageSize),
		PointsOfInterest: handler.NewPointOfInterestHandler(sessions, notifier),
		Tokens:           tokens,
		Cache:            config.LoadCacheConfig(),
		RateLimit:        config.LoadRateLimitConfig(),
		Redis:            rdb,
	}

	router.RegisterRoutes(e, store, metrics)
	router.RegisterAuth(e, handler.NewAuthHandler(authenticator))
	router.RegisterCities(e, routes)
	router.RegisterPointsOfInterest(e, routes)
	router.RegisterFiles(e, handler.NewFilesHandler(files.Dir, files.UploadDir, files.MaxUploadBytes), tokens)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
