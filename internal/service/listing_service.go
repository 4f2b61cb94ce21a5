package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
)

// ListingService 房源写路径：主库落地 + 同事务入队出站变更
type ListingService struct {
	db       *gorm.DB
	listings repository.ListingRepository
	sync     *SyncService
}

func NewListingService(db *gorm.DB, listings repository.ListingRepository, sync *SyncService) *ListingService {
	return &ListingService{db: db, listings: listings, sync: sync}
}

func (s *ListingService) Create(ctx context.Context, hostAccountID, title string, nightlyCents int64, checkInDay int) (*model.Listing, error) {
	listing := &model.Listing{
		ID:            uuid.New().String(),
		HostAccountID: hostAccountID,
		Title:         title,
		NightlyCents:  nightlyCents,
		CheckInDay:    checkInDay,
		Active:        true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.listings.CreateTx(tx, listing); err != nil {
			return err
		}
		_, err := s.sync.EnqueueSyncTx(tx, "listing", model.SyncOpInsert, map[string]interface{}{
			"host_account_id": hostAccountID,
			"title":           title,
			"nightly_cents":   nightlyCents,
			"check_in_day":    checkInDay,
			"active":          true,
		}, listing.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sync.Kick()
	return listing, nil
}

// Deactivate 下架：主库更新后入队 UPDATE（尽力而为，不阻塞写路径）
func (s *ListingService) Deactivate(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ?", id).Update("active", false).Error; err != nil {
		return err
	}
	_, _ = s.sync.EnqueueSync(ctx, "listing", model.SyncOpUpdate, map[string]interface{}{
		"active": false,
	}, id)
	return nil
}
