package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	CreateTx(tx *gorm.DB, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// SetLegacyID 回填遗留平台记录号；同步拿到 external id 后立即落库
	SetLegacyID(ctx context.Context, id, legacyID string) error
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) CreateTx(tx *gorm.DB, user *model.User) error {
	return tx.Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetLegacyID(ctx context.Context, id, legacyID string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("legacy_id", legacyID).Error
}
