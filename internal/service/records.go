package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/d60-Lab/renthub/internal/repository"
)

var ErrNoRecordStore = errors.New("no primary store for entity type")

// RecordDirectory 按 entityType 找到主库里对应记录的 legacy_id 读写入口。
// 处理器靠它把拿到的外部记录号立刻回填主库。
type RecordDirectory struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	listings repository.ListingRepository
	bookings repository.BookingRepository
}

func NewRecordDirectory(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	listings repository.ListingRepository,
	bookings repository.BookingRepository,
) *RecordDirectory {
	return &RecordDirectory{users: users, accounts: accounts, listings: listings, bookings: bookings}
}

func (d *RecordDirectory) GetLegacyID(ctx context.Context, entityType, localID string) (*string, error) {
	switch entityType {
	case "user":
		u, err := d.users.GetByID(ctx, localID)
		if err != nil {
			return nil, err
		}
		return u.LegacyID, nil
	case "account_host", "account_guest":
		a, err := d.accounts.GetByID(ctx, localID)
		if err != nil {
			return nil, err
		}
		return a.LegacyID, nil
	case "listing":
		l, err := d.listings.GetByID(ctx, localID)
		if err != nil {
			return nil, err
		}
		return l.LegacyID, nil
	case "booking":
		b, err := d.bookings.GetByID(ctx, localID)
		if err != nil {
			return nil, err
		}
		return b.LegacyID, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoRecordStore, entityType)
	}
}

func (d *RecordDirectory) SetLegacyID(ctx context.Context, entityType, localID, legacyID string) error {
	switch entityType {
	case "user":
		return d.users.SetLegacyID(ctx, localID, legacyID)
	case "account_host", "account_guest":
		return d.accounts.SetLegacyID(ctx, localID, legacyID)
	case "listing":
		return d.listings.SetLegacyID(ctx, localID, legacyID)
	case "booking":
		return d.bookings.SetLegacyID(ctx, localID, legacyID)
	default:
		return fmt.Errorf("%w: %s", ErrNoRecordStore, entityType)
	}
}
