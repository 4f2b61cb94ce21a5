package model

import (
	"time"

	"gorm.io/datatypes"
)

// SyncStatus 同步项状态
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusProcessing SyncStatus = "processing"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

// SyncOperation 出站变更类型
type SyncOperation string

const (
	SyncOpInsert       SyncOperation = "INSERT"
	SyncOpUpdate       SyncOperation = "UPDATE"
	SyncOpSignupAtomic SyncOperation = "SIGNUP_ATOMIC"
)

// SyncItem 同步队列行：一行代表一次期望写入遗留平台的变更。
// payload 使用内部字段名；completed 为终态，修正需追加新行而不是改写旧行。
type SyncItem struct {
	ID            string            `gorm:"primaryKey;type:varchar(36)"`
	EntityType    string            `gorm:"type:varchar(64);index:idx_sync_entity_local"`
	Operation     SyncOperation     `gorm:"type:varchar(16)"`
	Payload       datatypes.JSONMap `gorm:"type:json"`
	LocalRecordID string            `gorm:"type:varchar(36);index:idx_sync_entity_local"`
	ExternalID    *string           `gorm:"type:varchar(64)"`
	Status        SyncStatus        `gorm:"type:varchar(16);index:idx_sync_status"`
	RetryCount    int               `gorm:"default:0"`
	MaxRetries    int               `gorm:"default:5"`
	LastError     *string           `gorm:"type:text"`
	NextRetryAt   *time.Time        `gorm:"index"`
	ClaimedBy     *string           `gorm:"type:varchar(36);index"`
	CreatedAt     time.Time         `gorm:"index"`
	UpdatedAt     time.Time
}

func (SyncItem) TableName() string { return "sync_queue" }

// Exhausted 重试次数已达上限
func (s *SyncItem) Exhausted() bool { return s.RetryCount >= s.MaxRetries }
