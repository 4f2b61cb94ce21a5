package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	CreateTx(tx *gorm.DB, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	SetLegacyID(ctx context.Context, id, legacyID string) error
}

type accountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepository{db: db} }

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) CreateTx(tx *gorm.DB, account *model.Account) error {
	return tx.Create(account).Error
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) SetLegacyID(ctx context.Context, id, legacyID string) error {
	return r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("legacy_id", legacyID).Error
}
