// Package server initializes and runs the SecureMatch application server.
// It opens the database, runs migrations, wires the crypto engine and
// services together, and starts the HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/securematch/securematch/internal/cryptox"
	"github.com/securematch/securematch/internal/logging"
	"github.com/securematch/securematch/internal/server/config"
	"github.com/securematch/securematch/internal/server/httpapi"
	"github.com/securematch/securematch/internal/server/repositories/repomanager"
	"github.com/securematch/securematch/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rm     repomanager.RepositoryManager
	api    *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	engine, err := cryptox.NewEngineFromHex(c.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("crypto init error: %w", err)
	}

	ingest := services.NewIngestService(db, rm, engine, c.SearchableFields)
	internal := services.NewInternalSearchService(db, rm, engine)
	external := services.NewExternalSearchService(db, rm, engine)
	auditors := services.NewAuditorService(db, rm, engine)
	documents := services.NewDocumentService(db, rm)

	api := httpapi.NewServer(c.EndpointAddrHTTP, logger, ingest, internal, external, auditors, documents)

	return &App{config: c, logger: logger, db: db, rm: rm, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.api.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	return nil
}
