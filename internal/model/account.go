package model

import "time"

// AccountKind 账户类型
type AccountKind string

const (
	AccountKindHost  AccountKind = "host"
	AccountKindGuest AccountKind = "guest"
)

// Account 房东/房客账户。每个用户注册时各建一个 host、guest 账户，
// 账户与用户在遗留平台上互相引用（循环外键，见 signup resolver）。
type Account struct {
	ID        string      `gorm:"primaryKey;type:varchar(36)"`
	UserID    string      `gorm:"type:varchar(36);index:idx_account_user"`
	Kind      AccountKind `gorm:"type:varchar(8);index:idx_account_user"`
	Currency  string      `gorm:"type:varchar(3);default:USD"`
	PayoutDay int         // 0=周日 … 6=周六（内部 0 起）
	LegacyID  *string     `gorm:"type:varchar(64);index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string { return "accounts" }
