package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
)

var ErrBadDateRange = errors.New("end date must be after start date")

// BookingService 预订写路径
type BookingService struct {
	db       *gorm.DB
	bookings repository.BookingRepository
	sync     *SyncService
}

func NewBookingService(db *gorm.DB, bookings repository.BookingRepository, sync *SyncService) *BookingService {
	return &BookingService{db: db, bookings: bookings, sync: sync}
}

func (s *BookingService) Create(ctx context.Context, listingID, guestAccountID string, start, end time.Time, amountCents int64) (*model.Booking, error) {
	if !end.After(start) {
		return nil, ErrBadDateRange
	}
	booking := &model.Booking{
		ID:             uuid.New().String(),
		ListingID:      listingID,
		GuestAccountID: guestAccountID,
		StartDate:      start,
		EndDate:        end,
		AmountCents:    amountCents,
		Status:         model.BookingStatusPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.bookings.CreateTx(tx, booking); err != nil {
			return err
		}
		_, err := s.sync.EnqueueSyncTx(tx, "booking", model.SyncOpInsert, map[string]interface{}{
			"listing_id":       listingID,
			"guest_account_id": guestAccountID,
			"start_date":       start,
			"end_date":         end,
			"amount_cents":     amountCents,
			"status":           model.BookingStatusPending,
		}, booking.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sync.Kick()
	return booking, nil
}

func (s *BookingService) Confirm(ctx context.Context, id string) error {
	if err := s.bookings.UpdateStatus(ctx, id, model.BookingStatusConfirmed); err != nil {
		return err
	}
	_, _ = s.sync.EnqueueSync(ctx, "booking", model.SyncOpUpdate, map[string]interface{}{
		"status": model.BookingStatusConfirmed,
	}, id)
	return nil
}
