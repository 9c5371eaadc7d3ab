// Package daemon wires the database, the session store and the web
// service together into the running process.
package daemon

import (
	"fmt"
	"time"

	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/dsn"
	"github.com/openrealty/openrealty/internal/db/models"
	"github.com/openrealty/openrealty/internal/web"
	"github.com/openrealty/openrealty/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.Ability{},
		&models.UserRole{},
		&models.UserAbility{},
		&models.Listing{},
		&models.Setting{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	session.Init(openSessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, db),
	}
}

// openDialector picks the gorm driver matching the configured engine.
func openDialector(cfg *config.Config) gorm.Dialector {
	if cfg.DB.GormEngine == "postgres" {
		return gormpostgres.Open(dsn.Create(cfg))
	}

	return gormmysql.Open(dsn.Create(cfg))
}

// openSessionStorage opens the fiber session store on the same database
// engine the application uses.
func openSessionStorage(cfg *config.Config) storage.Storage {
	const gcInterval = 10 * time.Second

	if cfg.DB.GormEngine == "postgres" {
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
			GCInterval:    gcInterval,
		})
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
		GCInterval:    gcInterval,
	})
}
