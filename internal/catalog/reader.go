package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/florelink/florelink-backend/pkg/db/models"
)

// Reader exposes the read-only catalog surface the checkout pipeline depends on.
type Reader interface {
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error)
}
