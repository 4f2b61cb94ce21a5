package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	CreateTx(tx *gorm.DB, listing *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	SetLegacyID(ctx context.Context, id, legacyID string) error
}

type listingRepository struct{ db *gorm.DB }

func NewListingRepository(db *gorm.DB) ListingRepository { return &listingRepository{db: db} }

func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepository) CreateTx(tx *gorm.DB, listing *model.Listing) error {
	return tx.Create(listing).Error
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) SetLegacyID(ctx context.Context, id, legacyID string) error {
	return r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ?", id).
		Update("legacy_id", legacyID).Error
}
