package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/pkg/logger"
)

var ErrEmptyPassword = errors.New("password required")

// SignupService 注册主流程：主库一事务建 user + host/guest 账户，
// 提交后在后台发起两阶段同步。主库写入成功与否与同步结果无关。
type SignupService struct {
	db       *gorm.DB
	users    repository.UserRepository
	accounts repository.AccountRepository
	sync     *SyncService
}

func NewSignupService(db *gorm.DB, users repository.UserRepository, accounts repository.AccountRepository, sync *SyncService) *SignupService {
	return &SignupService{db: db, users: users, accounts: accounts, sync: sync}
}

// Signup 返回时主库记录已可用；遗留平台侧的记录号之后由同步补上
func (s *SignupService) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	host := &model.Account{ID: uuid.New().String(), UserID: user.ID, Kind: model.AccountKindHost, Currency: "USD"}
	guest := &model.Account{ID: uuid.New().String(), UserID: user.ID, Kind: model.AccountKindGuest, Currency: "USD"}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.CreateTx(tx, user); err != nil {
			return err
		}
		if err := s.accounts.CreateTx(tx, host); err != nil {
			return err
		}
		return s.accounts.CreateTx(tx, guest)
	})
	if err != nil {
		return nil, err
	}

	// 同步在请求生命周期之外跑，结果只记日志
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		result := s.sync.RunSignupAtomicSync(syncCtx, user.ID, host.ID, guest.ID)
		if result.Done() {
			logger.Info("signup sync done",
				zap.String("user_id", user.ID),
				zap.String("user_legacy_id", result.UserLegacyID))
		}
	}()
	return user, nil
}
