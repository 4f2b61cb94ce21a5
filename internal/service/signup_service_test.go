package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
)

func TestSignupCreatesUserAndBothAccounts(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	queue := newTestQueue(f.db)
	cfg := fastSyncConfig()
	cfg.KickAfterWrite = false
	syncSvc := NewSyncService(queue, nil, f.resolver, cfg)
	svc := NewSignupService(f.db, f.users, f.accounts, syncSvc)

	user, err := svc.Signup(ctx, "bob", "bob@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("hunter2")))

	var accounts []model.Account
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&accounts).Error)
	require.Len(t, accounts, 2)
	kinds := map[model.AccountKind]bool{}
	for _, a := range accounts {
		kinds[a.Kind] = true
	}
	assert.True(t, kinds[model.AccountKindHost])
	assert.True(t, kinds[model.AccountKindGuest])

	// 后台同步随后把三个 legacy_id 都补齐
	require.Eventually(t, func() bool {
		u, err := f.users.GetByID(ctx, user.ID)
		return err == nil && u.LegacyID != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSignupRejectsEmptyPassword(t *testing.T) {
	f := newResolverFixture(t)
	queue := newTestQueue(f.db)
	cfg := fastSyncConfig()
	syncSvc := NewSyncService(queue, nil, f.resolver, cfg)
	svc := NewSignupService(f.db, f.users, f.accounts, syncSvc)

	_, err := svc.Signup(context.Background(), "bob", "bob@example.com", "")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestSignupRollsBackWhenAccountInsertFails(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	queue := newTestQueue(f.db)
	cfg := fastSyncConfig()
	syncSvc := NewSyncService(queue, nil, f.resolver, cfg)
	svc := NewSignupService(f.db, f.users, brokenAccounts{f.accounts}, syncSvc)

	_, err := svc.Signup(ctx, "carol", "carol@example.com", "secret")
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Where("username = ?", "carol").Count(&count).Error)
	assert.Zero(t, count, "事务要整体回滚")
}

// brokenAccounts 让事务内的账户写入失败
type brokenAccounts struct {
	repository.AccountRepository
}

func (brokenAccounts) CreateTx(tx *gorm.DB, account *model.Account) error {
	return assert.AnError
}
