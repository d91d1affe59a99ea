package store

import (
	"context"

	"mdm/internal/models"
)

// ObjectStore is the metadata persistence surface used by ingestion.
type ObjectStore interface {
	InsertObject(ctx context.Context, rec *models.ObjectRecord) error
	AppendHistory(ctx context.Context, ev *models.HistoryEvent) error
	GetObject(ctx context.Context, id string) (*models.ObjectRecord, error)
	ListHistory(ctx context.Context, objectID string) ([]models.HistoryEvent, error)
}

var _ ObjectStore = (*Store)(nil)
