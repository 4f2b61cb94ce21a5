package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	CreateTx(tx *gorm.DB, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status int8) error
	SetLegacyID(ctx context.Context, id, legacyID string) error
}

type bookingRepository struct{ db *gorm.DB }

func NewBookingRepository(db *gorm.DB) BookingRepository { return &bookingRepository{db: db} }

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) CreateTx(tx *gorm.DB, booking *model.Booking) error {
	return tx.Create(booking).Error
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, status int8) error {
	return r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *bookingRepository) SetLegacyID(ctx context.Context, id, legacyID string) error {
	return r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", id).
		Update("legacy_id", legacyID).Error
}
