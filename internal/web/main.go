// Package web implements the HTTP API service.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	fiberlogger "github.com/openrealty/openrealty/internal/logger/adapter/fiber"
	"github.com/openrealty/openrealty/internal/web/handler"
	"github.com/openrealty/openrealty/internal/web/handler/gateway"
	"github.com/openrealty/openrealty/internal/web/handler/grant"
	"github.com/openrealty/openrealty/internal/web/handler/health"
	"github.com/openrealty/openrealty/internal/web/handler/listing"
	"github.com/openrealty/openrealty/internal/web/handler/login"
	oidchandler "github.com/openrealty/openrealty/internal/web/handler/oidc"
	"github.com/openrealty/openrealty/internal/web/handler/role"
	"github.com/openrealty/openrealty/internal/web/handler/tenant"
	"github.com/openrealty/openrealty/internal/web/handler/user"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authzService *authz.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "OpenRealty",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// access logging through the shared zerolog pipeline
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: health.CheckAlivePath,
	}))

	// session auth middleware
	app.Use(AuthMiddleware)

	// protected-role guard, overridable through the settings table
	guard := authz.LoadGuard(db, cfg.Authz.ProtectedRoles...)
	authzService := authz.NewService(db, guard)

	// init web service
	service := &Service{
		cfg:          cfg,
		App:          app,
		db:           db,
		authzService: authzService,
	}

	// serving from the start; WaitShutdown flips this off to drain
	service.alive.Store(true)

	health.Init(app, &service.alive)

	// init handlers (they register their own routes with ability checks)
	for name, h := range map[string]handler.Service{
		"login":   &login.Handler,
		"oidc":    &oidchandler.Handler,
		"tenant":  &tenant.Handler,
		"user":    &user.Handler,
		"role":    &role.Handler,
		"grant":   &grant.Handler,
		"listing": &listing.Handler,
		"gateway": &gateway.Handler,
	} {
		if err := h.Init(app, cfg, db, authzService); err != nil {
			panic(fmt.Sprintf("init %s handler: %v", name, err))
		}
	}

	// everything else is an unknown API route
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return service
}
