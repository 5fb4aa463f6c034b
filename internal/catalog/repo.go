package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/florelink/florelink-backend/pkg/db/models"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog reader bound to the provided DB.
func NewRepository(db *gorm.DB) Reader {
	return &repository{db: db}
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading catalog item")
	}
	return &item, nil
}
