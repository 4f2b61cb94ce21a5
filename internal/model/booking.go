package model

import "time"

// Booking 预订单
type Booking struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)"`
	ListingID      string     `gorm:"type:varchar(36);index:idx_booking_listing"`
	GuestAccountID string     `gorm:"type:varchar(36);index"`
	StartDate      time.Time  `gorm:"index:idx_booking_listing"`
	EndDate        time.Time
	AmountCents    int64      `gorm:"not null;default:0"`
	Status         int8       `gorm:"index;not null;default:0"` // 0:pending, 1:confirmed, 2:cancelled
	LegacyID       *string    `gorm:"type:varchar(64);index"`
	ConfirmedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Booking) TableName() string { return "bookings" }

// BookingStatus 预订状态常量
const (
	BookingStatusPending   = 0
	BookingStatusConfirmed = 1
	BookingStatusCancelled = 2
)
