package backend

import (
	"context"

	"cardcycle/internal/sheets"
)

// Export is where closed statements are written and read back.
type Export interface {
	sheets.StatementWriter
	sheets.StatementLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the export backend and optional cleanup function
type Result struct {
	Export  Export
	Cleanup CleanupFunc
}

// Factory creates export backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// Type represents the kind of export backend
type Type string

const (
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
