package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hvkoch/verleihsystem/internal/config"
	"github.com/hvkoch/verleihsystem/internal/es"
	"github.com/hvkoch/verleihsystem/internal/events"
	"github.com/hvkoch/verleihsystem/internal/handlers"
	"github.com/hvkoch/verleihsystem/internal/logging"
	authmw "github.com/hvkoch/verleihsystem/internal/middleware/auth"
	"github.com/hvkoch/verleihsystem/internal/seed"
	"github.com/hvkoch/verleihsystem/internal/service"
	httpserver "github.com/hvkoch/verleihsystem/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LOG_LEVEL)
	ctx := logging.IntoContext(context.Background(), logger)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := seed.EnsureSystemRoles(ctx, db); err != nil {
		log.Fatalf("seed roles error: %v", err)
	}
	if err := seed.EnsureAdminUser(ctx, db, cfg.ADMIN_USERNAME, cfg.ADMIN_EMAIL, cfg.ADMIN_PASSWORD); err != nil {
		log.Fatalf("seed admin error: %v", err)
	}

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	searchClient, err := esClientOrNil(cfg)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
	}
	searchHandler := &handlers.SearchHandler{ES: searchClient, Index: cfg.ES_INDEX}

	jwtSecret := []byte(cfg.JWT_SECRET)
	guard := authmw.NewGuard(jwtSecret)
	authSvc := service.NewAuthService(db, jwtSecret)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), logger)))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		Guard:            guard,
		AuthHandler:      &handlers.AuthHandler{Svc: authSvc, Producer: producer},
		UserHandler:      &handlers.UserHandler{DB: db, Svc: service.NewUserService(db), Producer: producer},
		RoleHandler:      &handlers.RoleHandler{DB: db, Svc: service.NewRoleService(db)},
		DeviceHandler:    &handlers.DeviceHandler{DB: db, Producer: producer, ES: searchClient, ESIndex: cfg.ES_INDEX},
		ContainerHandler: &handlers.ContainerHandler{DB: db},
		LendingHandler:   &handlers.LendingHandler{DB: db, Producer: producer},
		ReportHandler:    &handlers.ReportHandler{DB: db},
		AuditHandler:     &handlers.AuditHandler{DB: db},
		SearchHandler:    searchHandler,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", cfg.HTTP_ADDR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func esClientOrNil(cfg *config.Config) (*elasticsearch.Client, error) {
	if cfg.ES_URL == "" {
		return nil, nil
	}
	return es.NewClient(cfg)
}
