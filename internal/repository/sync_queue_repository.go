package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
)

// BackoffPolicy 指数退避参数：base × 2^retryCount，封顶 cap
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

// NextDelay 第 retryCount 次失败后的等待时长
func (p BackoffPolicy) NextDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := p.Base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= p.Cap {
			return p.Cap
		}
	}
	if d > p.Cap {
		return p.Cap
	}
	return d
}

type SyncQueueRepository interface {
	// Enqueue 追加一条出站变更；payload 入队后不可变
	Enqueue(ctx context.Context, item *model.SyncItem) error
	// EnqueueTx 与主库写入同事务入队
	EnqueueTx(tx *gorm.DB, item *model.SyncItem) error
	// ClaimBatch 原子抢占一批可处理项并置为 processing；
	// 并发调用返回的集合两两不相交
	ClaimBatch(ctx context.Context, limit int) ([]*model.SyncItem, error)
	MarkCompleted(ctx context.Context, id, externalID string) error
	MarkFailed(ctx context.Context, id, errDetail string, fatal bool) error
	// CountEligible 轻量判断是否有活可干，供调度器空转时省掉抢占
	CountEligible(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*model.SyncItem, error)
	ListByStatus(ctx context.Context, status model.SyncStatus, offset, limit int) ([]*model.SyncItem, error)
	// Requeue 人工修复入口：钉死的 failed 项重置为 pending
	Requeue(ctx context.Context, id string) error
	// ReleaseStale 回收宿主崩溃遗留的 processing 项（不计入重试次数）
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type syncQueueRepository struct {
	db      *gorm.DB
	backoff BackoffPolicy
}

func NewSyncQueueRepository(db *gorm.DB, backoff BackoffPolicy) SyncQueueRepository {
	if backoff.Base <= 0 {
		backoff.Base = 30 * time.Second
	}
	if backoff.Cap <= 0 {
		backoff.Cap = time.Hour
	}
	return &syncQueueRepository{db: db, backoff: backoff}
}

func (r *syncQueueRepository) Enqueue(ctx context.Context, item *model.SyncItem) error {
	return r.EnqueueTx(r.db.WithContext(ctx), item)
}

func (r *syncQueueRepository) EnqueueTx(tx *gorm.DB, item *model.SyncItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = model.SyncStatusPending
	}
	return tx.Create(item).Error
}

// 可处理条件：pending，或 failed 且未耗尽重试且到了重试时间。
// 同一 local_record_id 已有 processing 项时先不抢，保证单记录同一时刻
// 只有一次在途尝试（避免并发对同一记录重复 create）。
const eligibleCond = `(status = ? OR (status = ? AND retry_count < max_retries AND (next_retry_at IS NULL OR next_retry_at <= ?)))
AND local_record_id NOT IN (SELECT local_record_id FROM sync_queue WHERE status = ?)`

func (r *syncQueueRepository) ClaimBatch(ctx context.Context, limit int) ([]*model.SyncItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := time.Now()
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where(eligibleCond, model.SyncStatusPending, model.SyncStatusFailed, now, model.SyncStatusProcessing).
		Order("created_at").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("select eligible: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	// 乐观抢占：status 守卫让同一行的 UPDATE 只对一个调用生效，
	// 之后凭 claimed_by 令牌取回真正抢到的行。
	token := uuid.New().String()
	res := r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where("id IN ?", ids).
		Where("status IN ?", []model.SyncStatus{model.SyncStatusPending, model.SyncStatusFailed}).
		Updates(map[string]interface{}{
			"status":     model.SyncStatusProcessing,
			"claimed_by": token,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("claim batch: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	var items []*model.SyncItem
	err = r.db.WithContext(ctx).
		Where("claimed_by = ? AND status = ?", token, model.SyncStatusProcessing).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load claimed: %w", err)
	}
	return items, nil
}

func (r *syncQueueRepository) MarkCompleted(ctx context.Context, id, externalID string) error {
	updates := map[string]interface{}{
		"status":     model.SyncStatusCompleted,
		"updated_at": time.Now(),
		"claimed_by": nil,
	}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	res := r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where("id = ? AND status = ?", id, model.SyncStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark completed: item %s not in processing", id)
	}
	return nil
}

func (r *syncQueueRepository) MarkFailed(ctx context.Context, id, errDetail string, fatal bool) error {
	var item model.SyncItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":     model.SyncStatusFailed,
		"last_error": errDetail,
		"updated_at": now,
		"claimed_by": nil,
	}
	if fatal {
		// 致命错误直接耗尽额度，不再进入自动重试
		updates["retry_count"] = item.MaxRetries
		updates["next_retry_at"] = nil
	} else {
		retry := item.RetryCount + 1
		if retry > item.MaxRetries {
			retry = item.MaxRetries
		}
		updates["retry_count"] = retry
		next := now.Add(r.backoff.NextDelay(retry))
		updates["next_retry_at"] = next
	}
	return r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *syncQueueRepository) CountEligible(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where(eligibleCond, model.SyncStatusPending, model.SyncStatusFailed, time.Now(), model.SyncStatusProcessing).
		Count(&cnt).Error
	return cnt, err
}

func (r *syncQueueRepository) GetByID(ctx context.Context, id string) (*model.SyncItem, error) {
	var item model.SyncItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *syncQueueRepository) ListByStatus(ctx context.Context, status model.SyncStatus, offset, limit int) ([]*model.SyncItem, error) {
	var items []*model.SyncItem
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *syncQueueRepository) Requeue(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where("id = ? AND status = ?", id, model.SyncStatusFailed).
		Updates(map[string]interface{}{
			"status":        model.SyncStatusPending,
			"retry_count":   0,
			"next_retry_at": nil,
			"claimed_by":    nil,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("requeue: item %s not in failed", id)
	}
	return nil
}

func (r *syncQueueRepository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.WithContext(ctx).Model(&model.SyncItem{}).
		Where("status = ? AND updated_at < ?", model.SyncStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     model.SyncStatusPending,
			"claimed_by": nil,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
