package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "cardcycle/internal/sheets/google"
	"cardcycle/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	switch config.Type {
	case SheetsBackend:
		return f.createSheets(ctx, config)
	case MemoryBackend:
		return f.createMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheets(ctx context.Context, config Config) (*Result, error) {
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets export", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{Export: client}, nil
}

func (f *DefaultFactory) createMemory() *Result {
	f.logger.Info("Initialized memory export - rows are not persisted")
	return &Result{Export: memory.New()}
}
