package service

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/renthub/internal/legacy"
	"github.com/d60-Lab/renthub/internal/mapper"
	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/pkg/logger"
)

// SignupStep 两阶段同步的五个外部调用
type SignupStep string

const (
	StepCreateHost  SignupStep = "create_host_account"
	StepCreateGuest SignupStep = "create_guest_account"
	StepCreateUser  SignupStep = "create_user"
	StepPatchHost   SignupStep = "patch_host_account"
	StepPatchGuest  SignupStep = "patch_guest_account"
)

// SignupState 状态机推进位置
type SignupState string

const (
	SignupStateNotStarted   SignupState = "not_started"
	SignupStateHostCreated  SignupState = "host_created"
	SignupStateGuestCreated SignupState = "guest_created"
	SignupStateUserCreated  SignupState = "user_created"
	SignupStateHostPatched  SignupState = "host_patched"
	SignupStateDone         SignupState = "done"
)

// SignupSyncResult 单次解算的过程记录。只在一次调用内存活，
// 失败时能区分“什么都没做”与“外部记录已建但引用未补”。
type SignupSyncResult struct {
	State         SignupState
	HostLegacyID  string
	GuestLegacyID string
	UserLegacyID  string
	StepsDone     []SignupStep // 本次真正发出的外部调用
	StepsSkipped  []SignupStep // 之前已完成、本次跳过的步骤
	FailedStep    SignupStep
	Err           error
}

// Done 五步全部到位
func (r *SignupSyncResult) Done() bool { return r.State == SignupStateDone }

func (r *SignupSyncResult) fail(step SignupStep, err error) *SignupSyncResult {
	r.FailedStep = step
	r.Err = fmt.Errorf("signup sync step %s: %w", step, err)
	return r
}

// SignupResolver 注册三元组（host 账户、guest 账户、用户）在遗留平台上
// 互相引用，无法一次建全。两阶段拆环：先建缺引用的账户、再建带正向
// 引用的用户、最后补账户的回引。每步拿到外部记录号都立刻回填主库，
// 重入时凭主库里的 legacy_id 跳过已完成步骤，不会重复建外部记录。
type SignupResolver struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	client   legacy.Client
}

func NewSignupResolver(users repository.UserRepository, accounts repository.AccountRepository, client legacy.Client) *SignupResolver {
	return &SignupResolver{users: users, accounts: accounts, client: client}
}

// Run 顺序执行五步，任一步失败立即停（不做补偿删除），
// 已建出的外部记录留在原地等重入续跑。
func (s *SignupResolver) Run(ctx context.Context, userID, hostAccountID, guestAccountID string) *SignupSyncResult {
	result := &SignupSyncResult{State: SignupStateNotStarted}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return result.fail(StepCreateHost, fmt.Errorf("load user %s: %w", userID, err))
	}
	host, err := s.accounts.GetByID(ctx, hostAccountID)
	if err != nil {
		return result.fail(StepCreateHost, fmt.Errorf("load host account %s: %w", hostAccountID, err))
	}
	guest, err := s.accounts.GetByID(ctx, guestAccountID)
	if err != nil {
		return result.fail(StepCreateHost, fmt.Errorf("load guest account %s: %w", guestAccountID, err))
	}

	// 阶段一：create（账户先行，略去指向用户的循环字段）
	hostCreatedNow, err := s.createAccount(ctx, "account_host", host, result, StepCreateHost)
	if err != nil {
		return result.fail(StepCreateHost, err)
	}
	result.HostLegacyID = *host.LegacyID
	result.State = SignupStateHostCreated

	guestCreatedNow, err := s.createAccount(ctx, "account_guest", guest, result, StepCreateGuest)
	if err != nil {
		return result.fail(StepCreateGuest, err)
	}
	result.GuestLegacyID = *guest.LegacyID
	result.State = SignupStateGuestCreated

	if err := s.createUser(ctx, user, host, guest, result); err != nil {
		return result.fail(StepCreateUser, err)
	}
	result.UserLegacyID = *user.LegacyID
	result.State = SignupStateUserCreated

	// 阶段二：补账户指向用户的回引
	if err := s.patchAccount(ctx, "account_host", host, user, !hostCreatedNow, result, StepPatchHost); err != nil {
		return result.fail(StepPatchHost, err)
	}
	result.State = SignupStateHostPatched

	if err := s.patchAccount(ctx, "account_guest", guest, user, !guestCreatedNow, result, StepPatchGuest); err != nil {
		return result.fail(StepPatchGuest, err)
	}
	result.State = SignupStateDone
	return result
}

// createAccount 返回本次是否真的发出了 create
func (s *SignupResolver) createAccount(ctx context.Context, entity string, account *model.Account, result *SignupSyncResult, step SignupStep) (bool, error) {
	if account.LegacyID != nil {
		result.StepsSkipped = append(result.StepsSkipped, step)
		return false, nil
	}
	table, err := mapper.MapEntityName(entity)
	if err != nil {
		return false, err
	}
	fields, err := mapper.MapFields(entity, map[string]interface{}{
		"currency":   account.Currency,
		"payout_day": account.PayoutDay,
	})
	if err != nil {
		return false, err
	}
	externalID, err := s.client.Create(ctx, table, fields)
	if err != nil {
		return false, err
	}
	result.StepsDone = append(result.StepsDone, step)
	if err := s.accounts.SetLegacyID(ctx, account.ID, externalID); err != nil {
		s.reportOrphan(entity, account.ID, externalID, err)
		return true, fmt.Errorf("persist legacy id for %s: %w", account.ID, err)
	}
	account.LegacyID = &externalID
	return true, nil
}

func (s *SignupResolver) createUser(ctx context.Context, user *model.User, host, guest *model.Account, result *SignupSyncResult) error {
	if user.LegacyID != nil {
		result.StepsSkipped = append(result.StepsSkipped, StepCreateUser)
		return nil
	}
	table, err := mapper.MapEntityName("user")
	if err != nil {
		return err
	}
	// 用户侧的正向引用此刻已知：两个账户先建好了
	fields, err := mapper.MapFields("user", map[string]interface{}{
		"name":             user.Username,
		"email":            user.Email,
		"host_account_id":  *host.LegacyID,
		"guest_account_id": *guest.LegacyID,
	})
	if err != nil {
		return err
	}
	externalID, err := s.client.Create(ctx, table, fields)
	if err != nil {
		return err
	}
	result.StepsDone = append(result.StepsDone, StepCreateUser)
	if err := s.users.SetLegacyID(ctx, user.ID, externalID); err != nil {
		s.reportOrphan("user", user.ID, externalID, err)
		return fmt.Errorf("persist legacy id for user %s: %w", user.ID, err)
	}
	user.LegacyID = &externalID
	return nil
}

// patchAccount 补回引。checkRemote 为真时（重入且账户上次就存在）
// 先读远端确认是否已补过，避免重入时多打一次 update。
func (s *SignupResolver) patchAccount(ctx context.Context, entity string, account *model.Account, user *model.User, checkRemote bool, result *SignupSyncResult, step SignupStep) error {
	table, err := mapper.MapEntityName(entity)
	if err != nil {
		return err
	}
	fields, err := mapper.MapFields(entity, map[string]interface{}{
		"user_id": *user.LegacyID,
	})
	if err != nil {
		return err
	}
	if checkRemote {
		if remote, err := s.client.Get(ctx, table, *account.LegacyID); err == nil {
			if v, ok := remote["UserID"]; ok && fmt.Sprint(v) == *user.LegacyID {
				result.StepsSkipped = append(result.StepsSkipped, step)
				return nil
			}
		}
		// 读失败就直接补写，update 本身幂等
	}
	if err := s.client.Update(ctx, table, *account.LegacyID, fields); err != nil {
		return err
	}
	result.StepsDone = append(result.StepsDone, step)
	return nil
}

func (s *SignupResolver) reportOrphan(entity, localID, externalID string, cause error) {
	logger.Error("external record created but legacy_id persist failed",
		zap.String("entity", entity),
		zap.String("local_record_id", localID),
		zap.String("external_id", externalID),
		zap.Error(cause))
	sentry.CaptureException(fmt.Errorf("signup sync: legacy_id persist failed for %s/%s (external %s): %w",
		entity, localID, externalID, cause))
}
