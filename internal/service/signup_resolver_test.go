package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/internal/legacy"
	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
)

type resolverFixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	accounts repository.AccountRepository
	client   *fakeClient
	resolver *SignupResolver
	user     *model.User
	host     *model.Account
	guest    *model.Account
}

func newResolverFixture(t *testing.T) *resolverFixture {
	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	accounts := repository.NewAccountRepository(db)
	client := newFakeClient()

	user := &model.User{ID: uuid.New().String(), Username: "jane", Email: "jane@example.com", Password: "x"}
	host := &model.Account{ID: uuid.New().String(), UserID: user.ID, Kind: model.AccountKindHost, Currency: "USD", PayoutDay: 4}
	guest := &model.Account{ID: uuid.New().String(), UserID: user.ID, Kind: model.AccountKindGuest, Currency: "USD"}
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, accounts.Create(ctx, host))
	require.NoError(t, accounts.Create(ctx, guest))

	return &resolverFixture{
		db:       db,
		users:    users,
		accounts: accounts,
		client:   client,
		resolver: NewSignupResolver(users, accounts, client),
		user:     user,
		host:     host,
		guest:    guest,
	}
}

func (f *resolverFixture) run(ctx context.Context) *SignupSyncResult {
	return f.resolver.Run(ctx, f.user.ID, f.host.ID, f.guest.ID)
}

func TestResolverFullRun(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	result := f.run(ctx)
	require.NoError(t, result.Err)
	assert.True(t, result.Done())
	assert.Equal(t, SignupStateDone, result.State)
	assert.Equal(t, []SignupStep{StepCreateHost, StepCreateGuest, StepCreateUser, StepPatchHost, StepPatchGuest}, result.StepsDone)
	assert.Empty(t, result.StepsSkipped)

	// 三个 legacy_id 都已回填主库
	user, err := f.users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, user.LegacyID)
	host, err := f.accounts.GetByID(ctx, f.host.ID)
	require.NoError(t, err)
	require.NotNil(t, host.LegacyID)
	guest, err := f.accounts.GetByID(ctx, f.guest.ID)
	require.NoError(t, err)
	require.NotNil(t, guest.LegacyID)

	// 用户记录带上了两个账户的正向引用
	assert.Equal(t, *host.LegacyID, f.client.remoteField("tbl_Users", *user.LegacyID, "HostAccountID"))
	assert.Equal(t, *guest.LegacyID, f.client.remoteField("tbl_Users", *user.LegacyID, "GuestAccountID"))
	// 两个账户补上了指向用户的回引
	assert.Equal(t, *user.LegacyID, f.client.remoteField("tbl_HostAccounts", *host.LegacyID, "UserID"))
	assert.Equal(t, *user.LegacyID, f.client.remoteField("tbl_GuestAccounts", *guest.LegacyID, "UserID"))
	// payout_day 走了 1 起的外部编码
	assert.Equal(t, 5, f.client.remoteField("tbl_HostAccounts", *host.LegacyID, "PayoutDay"))

	creates, updates, _ := f.client.counts()
	assert.Equal(t, 3, creates)
	assert.Equal(t, 2, updates)
}

func TestResolverFailsAtCreateUser(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.client.createFault = func(table string, call int) error {
		if table == "tbl_Users" {
			return &legacy.APIError{StatusCode: 503, Body: "unavailable"}
		}
		return nil
	}
	result := f.run(ctx)
	require.Error(t, result.Err)
	assert.Equal(t, StepCreateUser, result.FailedStep)
	assert.Equal(t, SignupStateGuestCreated, result.State)
	// 前两步的外部记录号都在结果里
	assert.NotEmpty(t, result.HostLegacyID)
	assert.NotEmpty(t, result.GuestLegacyID)
	assert.Empty(t, result.UserLegacyID)
	assert.Equal(t, []SignupStep{StepCreateHost, StepCreateGuest}, result.StepsDone)

	// 中途失败不做补偿删除，账户的 legacy_id 已持久化
	host, err := f.accounts.GetByID(ctx, f.host.ID)
	require.NoError(t, err)
	require.NotNil(t, host.LegacyID)
	assert.Equal(t, result.HostLegacyID, *host.LegacyID)
}

func TestResolverResumeSkipsCompletedCreates(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	// 第一轮：step 4（补 host 回引）失败
	f.client.updateFault = func(table, externalID string) error {
		if table == "tbl_HostAccounts" {
			return &legacy.APIError{StatusCode: 500, Body: "boom"}
		}
		return nil
	}
	first := f.run(ctx)
	require.Error(t, first.Err)
	assert.Equal(t, StepPatchHost, first.FailedStep)
	assert.Equal(t, SignupStateUserCreated, first.State)
	creates, _, _ := f.client.counts()
	require.Equal(t, 3, creates)

	// 第二轮：只补 4、5 两步，绝不重复 create
	f.client.updateFault = nil
	second := f.run(ctx)
	require.NoError(t, second.Err)
	assert.True(t, second.Done())
	assert.ElementsMatch(t, []SignupStep{StepCreateHost, StepCreateGuest, StepCreateUser}, second.StepsSkipped)
	assert.Equal(t, []SignupStep{StepPatchHost, StepPatchGuest}, second.StepsDone)

	creates, _, _ = f.client.counts()
	assert.Equal(t, 3, creates, "重入没有新增 create")
}

func TestResolverResumeSkipsRemotelyPatchedAccounts(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	first := f.run(ctx)
	require.NoError(t, first.Err)

	// 全部完成后再跑一遍：远端回引已在，五步全跳过
	second := f.run(ctx)
	require.NoError(t, second.Err)
	assert.True(t, second.Done())
	assert.Empty(t, second.StepsDone)
	assert.Len(t, second.StepsSkipped, 5)

	creates, updates, _ := f.client.counts()
	assert.Equal(t, 3, creates)
	assert.Equal(t, 2, updates, "重入没有多余的外部写")
}

func TestResolverAbortsOnFirstFailure(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.client.createFault = func(table string, call int) error {
		return &legacy.APIError{StatusCode: 503, Body: "down"}
	}
	result := f.run(ctx)
	require.Error(t, result.Err)
	assert.Equal(t, StepCreateHost, result.FailedStep)
	assert.Equal(t, SignupStateNotStarted, result.State)

	creates, updates, _ := f.client.counts()
	assert.Equal(t, 1, creates, "第一步失败后不再尝试后续步骤")
	assert.Zero(t, updates)
}
