package model

import "time"

// User 平台用户；LegacyID 为遗留平台侧记录号，同步成功前为空
type User struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	Username  string  `gorm:"type:varchar(64);uniqueIndex"`
	Email     string  `gorm:"type:varchar(128);uniqueIndex"`
	Password  string  `gorm:"type:varchar(128)"` // bcrypt hash
	LegacyID  *string `gorm:"type:varchar(64);index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
