package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/config"
	"github.com/d60-Lab/renthub/internal/mapper"
	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/pkg/logger"
)

// SyncService 应用层进同步引擎的门面：
// 普通实体走“先入队、稍后处理”，注册三元组走同步的两阶段解算。
// 这组入口对主写路径永远是尽力而为，失败只记录、不回滚业务写入。
type SyncService struct {
	queue     repository.SyncQueueRepository
	processor *Processor
	resolver  *SignupResolver
	cfg       config.SyncConfig
}

func NewSyncService(queue repository.SyncQueueRepository, processor *Processor, resolver *SignupResolver, cfg config.SyncConfig) *SyncService {
	return &SyncService{queue: queue, processor: processor, resolver: resolver, cfg: cfg}
}

// EnqueueSync 追加一条出站变更并立即返回。
// 返回的 error 对调用方只是参考信息，业务响应不应因它失败。
func (s *SyncService) EnqueueSync(ctx context.Context, entityType string, operation model.SyncOperation, payload map[string]interface{}, localRecordID string) (string, error) {
	if err := mapper.ValidatePayload(entityType, payload); err != nil {
		logger.Warn("enqueue rejected by payload schema",
			zap.String("entity", entityType), zap.Error(err))
		return "", err
	}
	item := s.newItem(entityType, operation, payload, localRecordID)
	if err := s.queue.Enqueue(ctx, item); err != nil {
		logger.Error("enqueue sync item failed",
			zap.String("entity", entityType),
			zap.String("local_record_id", localRecordID),
			zap.Error(err))
		return "", err
	}
	s.Kick()
	return item.ID, nil
}

// EnqueueSyncTx 与主库业务写入放在同一个事务里入队，
// 保证“记录存在则队列项一定存在”。事务提交后由调用方 Kick。
func (s *SyncService) EnqueueSyncTx(tx *gorm.DB, entityType string, operation model.SyncOperation, payload map[string]interface{}, localRecordID string) (string, error) {
	if err := mapper.ValidatePayload(entityType, payload); err != nil {
		return "", err
	}
	item := s.newItem(entityType, operation, payload, localRecordID)
	if err := s.queue.EnqueueTx(tx, item); err != nil {
		return "", err
	}
	return item.ID, nil
}

// RunSignupAtomicSync 同步跑两阶段解算，可能有多次外部往返。
// 不完整时入队 SIGNUP_ATOMIC 修复项交给重试控制器续跑；
// 调用方拿结果只做记录，绝不阻塞注册响应。
func (s *SyncService) RunSignupAtomicSync(ctx context.Context, userID, hostAccountID, guestAccountID string) *SignupSyncResult {
	result := s.resolver.Run(ctx, userID, hostAccountID, guestAccountID)
	if result.Err == nil {
		return result
	}
	logger.Warn("signup sync incomplete, enqueueing repair item",
		zap.String("user_id", userID),
		zap.String("state", string(result.State)),
		zap.String("failed_step", string(result.FailedStep)),
		zap.Error(result.Err))
	repair := &model.SyncItem{
		EntityType: "signup",
		Operation:  model.SyncOpSignupAtomic,
		Payload: datatypes.JSONMap{
			"user_id":          userID,
			"host_account_id":  hostAccountID,
			"guest_account_id": guestAccountID,
		},
		LocalRecordID: userID,
		MaxRetries:    s.cfg.MaxRetries,
	}
	if err := s.queue.Enqueue(ctx, repair); err != nil {
		logger.Error("enqueue signup repair item failed",
			zap.String("user_id", userID), zap.Error(err))
	}
	return result
}

// Kick 机会主义地立刻跑一小批，降低注册等低延迟场景的同步滞后
func (s *SyncService) Kick() {
	if !s.cfg.KickAfterWrite || s.processor == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BatchDeadline+5*time.Second)
		defer cancel()
		if _, err := s.processor.ProcessBatch(ctx, s.cfg.BatchSize); err != nil {
			logger.Warn("opportunistic process batch failed", zap.Error(err))
		}
	}()
}

func (s *SyncService) newItem(entityType string, operation model.SyncOperation, payload map[string]interface{}, localRecordID string) *model.SyncItem {
	return &model.SyncItem{
		EntityType:    entityType,
		Operation:     operation,
		Payload:       datatypes.JSONMap(payload),
		LocalRecordID: localRecordID,
		MaxRetries:    s.cfg.MaxRetries,
	}
}
