package model

import "time"

// Listing 房源
type Listing struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	HostAccountID string  `gorm:"type:varchar(36);index"`
	Title         string  `gorm:"type:varchar(128)"`
	NightlyCents  int64   `gorm:"not null;default:0"`
	CheckInDay    int     // 内部 0 起的入住日编码
	Active        bool    `gorm:"default:true"`
	LegacyID      *string `gorm:"type:varchar(64);index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Listing) TableName() string { return "listings" }
