package app

import (
	"fmt"

	"github.com/phuslu/log"

	"github.com/RodrigoAbrao/editor-pdf/internal/common"
	"github.com/RodrigoAbrao/editor-pdf/internal/handlers"
	"github.com/RodrigoAbrao/editor-pdf/internal/services/editor"
	"github.com/RodrigoAbrao/editor-pdf/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger *log.Logger
	Store  *storage.Store

	// Services
	Editor *editor.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	DocumentHandler *handlers.DocumentHandler
	FontHandler     *handlers.FontHandler
	ExportHandler   *handlers.ExportHandler
}

// New creates the application with all services and handlers wired
func New(cfg *common.Config, logger *log.Logger) (*App, error) {
	store, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	editorService := editor.New(store, cfg, logger)

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Editor: editorService,

		APIHandler:      handlers.NewAPIHandler(),
		DocumentHandler: handlers.NewDocumentHandler(editorService, logger),
		FontHandler:     handlers.NewFontHandler(editorService, logger),
		ExportHandler:   handlers.NewExportHandler(editorService, logger),
	}

	logger.Info().
		Str("badger", cfg.Storage.Badger.Path).
		Str("documents", cfg.Storage.Filesystem.Documents).
		Msg("Application initialized")

	return a, nil
}

// Close releases application resources
func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
