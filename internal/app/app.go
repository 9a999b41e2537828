// Package app wires the report controller from a Config. The daemon and the
// interactive console share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/artifact"
	"github.com/MrDragar/LDPR-reports-generator/internal/config"
	"github.com/MrDragar/LDPR-reports-generator/internal/draft"
	"github.com/MrDragar/LDPR-reports-generator/internal/form"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/notice"
	"github.com/MrDragar/LDPR-reports-generator/internal/reportsvc"
	"github.com/MrDragar/LDPR-reports-generator/internal/submit"
)

// App holds the wired components and the resources to release on Close.
type App struct {
	Config     config.Config
	Logger     *logrus.Logger
	Store      draft.Store
	LogDB      *sql.DB
	Notices    *notice.Board
	Pipeline   *submit.Pipeline
	Controller *form.Controller

	closeLogDB bool
}

// OpenStore opens the draft store named by cfg.DraftBackend.
func OpenStore(ctx context.Context, cfg config.Config) (draft.Store, error) {
	switch cfg.DraftBackend {
	case "sqlite":
		return draft.NewSQLiteStore(cfg.DBPath, cfg.DraftHistory)
	case "redis":
		return draft.NewRedisStore(ctx, cfg.RedisAddress, cfg.DraftKey)
	case "memory":
		return draft.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown draft backend %q", cfg.DraftBackend)
}

// guardTTL bounds the submit lock. The post and the fetch may each take the
// full timeout; the third share covers saving and logging.
func guardTTL(timeout time.Duration) time.Duration {
	return 3 * timeout
}

// New opens the stores and builds the controller. On error everything opened
// so far is closed again.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, Store: store}

	// The submission log lives next to the drafts when they are in SQLite.
	if s, ok := store.(*draft.SQLiteStore); ok {
		if err := logging.Migrate(s.DB()); err != nil {
			store.Close()
			return nil, err
		}
		a.LogDB = s.DB()
	} else {
		db, err := logging.Open(cfg.DBPath)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.LogDB, a.closeLogDB = db, true
	}

	var guard submit.Guard
	if s, ok := store.(*draft.RedisStore); ok {
		guard = submit.NewRedisGuard(redislock.New(s.Client()), cfg.DraftKey, guardTTL(cfg.ReportServiceTimeout), logger)
	}

	a.Notices = notice.NewBoard(cfg.NoticeTTL)
	a.Pipeline = submit.New(submit.Deps{
		Service:  reportsvc.New(reportsvc.Config{URL: cfg.ReportServiceURL, Timeout: cfg.ReportServiceTimeout}),
		Saver:    artifact.DirSaver{Dir: cfg.DownloadDir},
		Guard:    guard,
		Logger:   logger,
		Log:      a.LogDB,
		Endpoint: cfg.ReportServiceURL,
		Prefix:   cfg.FilePrefix,
	})
	a.Controller = form.New(ctx, form.Deps{
		Draft:    draft.NewAdapter(store, logger),
		Notices:  a.Notices,
		Pipeline: a.Pipeline,
		Logger:   logger,
		Prefix:   cfg.FilePrefix,
	})
	return a, nil
}

// Close releases the notice timers and the stores.
func (a *App) Close() error {
	a.Notices.Close()
	if a.closeLogDB {
		a.LogDB.Close()
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close draft store: %w", err)
	}
	return nil
}
