package store

import (
	"context"

	"github.com/nhle/mailnote/internal/model"
)

// Store defines the persistence interface for the local export history.
type Store interface {
	RecordExport(ctx context.Context, rec model.ExportRecord) error
	RecentExports(ctx context.Context, limit int) ([]model.ExportRecord, error)
	Close() error
}
