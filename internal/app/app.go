// Package app wires configuration into a running schemapub: the database
// source, the publish sinks, the version resolver and the publisher.
package app

import (
	"context"
	"io"

	"github.com/koustreak/schemapub/internal/config"
	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/database/mysql"
	"github.com/koustreak/schemapub/internal/database/postgres"
	"github.com/koustreak/schemapub/internal/database/sqlite"
	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/filestore/minio"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/publish"
	"github.com/koustreak/schemapub/internal/publisher"
	"github.com/koustreak/schemapub/internal/server"
	"github.com/koustreak/schemapub/internal/version"
)

// App holds every long-lived component. Close releases them.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	DB        database.DB
	Publisher *publisher.Publisher
	Archive   *publish.Archive

	closers []io.Closer
}

// OpenDB connects to the configured database engine.
func OpenDB(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		db  database.DB
		err error
	)
	switch cfg.Driver {
	case database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	case database.DriverSQLite:
		db, err = sqlite.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// New connects the database and builds the sinks enabled in cfg. Nothing is
// published until the caller asks.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := OpenDB(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: db}

	sinks, err := a.buildSinks(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	pubCfg := publisher.Config{
		Component:  cfg.Application.Name,
		SchemaName: cfg.ArchRepo.SchemaName,
	}

	var sink publish.Sink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = sinks
	}
	for _, s := range sinks {
		if ar, ok := s.(*publish.ArchRepo); ok {
			pubCfg.Target = ar.Endpoint()
			pubCfg.OAuthClient = ar.OAuthClient()
		}
	}

	versions := version.Default(log, cfg.Application.Version, cfg.Application.GitProperties)
	a.Publisher = publisher.New(pubCfg, db, versions, sink, log)

	log.InfoWith("schemapub ready", map[string]any{
		"component": cfg.Application.Name,
		"driver":    string(db.Driver()),
		"schema":    cfg.ArchRepo.SchemaName,
		"sinks":     sinks.Names(),
	})
	return a, nil
}

func (a *App) buildSinks(ctx context.Context) (publish.Multi, error) {
	cfg := a.Config
	sinks := publish.Multi{}

	if cfg.PublishEnabled() {
		ar, err := publish.NewArchRepo(cfg.ArchRepoConfig(), a.Log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ar)
	} else {
		a.Log.Info("archrepo publishing disabled")
	}

	if cfg.Archive.Enabled {
		store, err := minio.New(ctx, cfg.FileStoreConfig())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)

		archive, err := publish.NewArchive(store, cfg.Archive.Bucket, cfg.Archive.Prefix, a.Log)
		if err != nil {
			return nil, err
		}
		a.Archive = archive
		sinks = append(sinks, archive)
	}

	if cfg.Kafka.Enabled {
		k, err := publish.NewKafka(cfg.KafkaConfig(), a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, k)
		sinks = append(sinks, k)
	}
	return sinks, nil
}

// Server returns the admin API over this app's components.
func (a *App) Server() *server.Server {
	var history server.History
	if a.Archive != nil {
		history = a.Archive
	}
	return server.New(server.Config{
		Addr:      a.Config.Server.Addr,
		Component: a.Config.Application.Name,
	}, a.DB, a.Publisher, history, a.Log)
}

// Close releases sinks and the database pool.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Log.ErrorWith("failed to close component", err, nil)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
