package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/renthub/internal/legacy"
	"github.com/d60-Lab/renthub/internal/mapper"
	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/pkg/logger"
)

var ErrExternalIDMissing = errors.New("external id not yet available")

// Processor 队列处理器：抢占一批可处理项，翻译后打到遗留平台，
// 逐项推进状态。每项独立处理，单项失败不影响同批其他项。
type Processor struct {
	queue    repository.SyncQueueRepository
	client   legacy.Client
	records  *RecordDirectory
	resolver *SignupResolver
	deadline time.Duration
	tracer   trace.Tracer
}

func NewProcessor(queue repository.SyncQueueRepository, client legacy.Client, records *RecordDirectory, resolver *SignupResolver, batchDeadline time.Duration) *Processor {
	if batchDeadline <= 0 {
		batchDeadline = 45 * time.Second
	}
	return &Processor{
		queue:    queue,
		client:   client,
		records:  records,
		resolver: resolver,
		deadline: batchDeadline,
		tracer:   otel.Tracer("sync"),
	}
}

// ProcessBatch 处理最多 limit 项；整批有截止时间，
// 避免一次慢批撞上调度器的下一个 tick。
func (p *Processor) ProcessBatch(ctx context.Context, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "sync.process_batch",
		trace.WithAttributes(attribute.Int("sync.batch_limit", limit)))
	defer span.End()

	items, err := p.queue.ClaimBatch(ctx, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			// 批截止：剩余已抢占项交还给下一轮（留给 stale 回收）
			break
		}
		p.processOne(ctx, item)
		processed++
	}
	return processed, nil
}

func (p *Processor) processOne(ctx context.Context, item *model.SyncItem) {
	ctx, span := p.tracer.Start(ctx, "sync.process_item", trace.WithAttributes(
		attribute.String("sync.entity", item.EntityType),
		attribute.String("sync.operation", string(item.Operation)),
	))
	defer span.End()

	externalID, err := p.dispatch(ctx, item)
	if err != nil {
		p.fail(ctx, item, err)
		return
	}
	if err := p.queue.MarkCompleted(ctx, item.ID, externalID); err != nil {
		logger.Error("mark completed failed", zap.String("item", item.ID), zap.Error(err))
	}
}

func (p *Processor) dispatch(ctx context.Context, item *model.SyncItem) (string, error) {
	switch item.Operation {
	case model.SyncOpInsert:
		return p.doInsert(ctx, item)
	case model.SyncOpUpdate:
		return "", p.doUpdate(ctx, item)
	case model.SyncOpSignupAtomic:
		return "", p.doSignupRepair(ctx, item)
	default:
		return "", fmt.Errorf("unknown operation %q", item.Operation)
	}
}

func (p *Processor) doInsert(ctx context.Context, item *model.SyncItem) (string, error) {
	// 已有 legacy_id 说明外部记录早已建好（上次 crash 在回填后、
	// 标记完成前），直接收尾，绝不重复 create
	if existing, err := p.records.GetLegacyID(ctx, item.EntityType, item.LocalRecordID); err == nil && existing != nil {
		return *existing, nil
	}
	table, fields, err := p.translate(item)
	if err != nil {
		return "", err
	}
	externalID, err := p.client.Create(ctx, table, fields)
	if err != nil {
		return "", err
	}
	if err := p.records.SetLegacyID(ctx, item.EntityType, item.LocalRecordID, externalID); err != nil {
		// 外部记录已存在而主库没有指针：用队列行里的 external_id 兜底，
		// 大声上报，绝不通过重试去再建一条外部记录
		logger.Error("external record created but legacy_id persist failed",
			zap.String("item", item.ID),
			zap.String("entity", item.EntityType),
			zap.String("local_record_id", item.LocalRecordID),
			zap.String("external_id", externalID),
			zap.Error(err))
		sentry.CaptureException(fmt.Errorf("legacy_id persist failed for %s/%s (external %s): %w",
			item.EntityType, item.LocalRecordID, externalID, err))
	}
	return externalID, nil
}

func (p *Processor) doUpdate(ctx context.Context, item *model.SyncItem) error {
	externalID := item.ExternalID
	if externalID == nil {
		legacyID, err := p.records.GetLegacyID(ctx, item.EntityType, item.LocalRecordID)
		if err != nil {
			return err
		}
		externalID = legacyID
	}
	if externalID == nil {
		// create 还没同步过去；按瞬时处理，等 INSERT 项先落地
		return ErrExternalIDMissing
	}
	table, fields, err := p.translate(item)
	if err != nil {
		return err
	}
	return p.client.Update(ctx, table, *externalID, fields)
}

// doSignupRepair 续跑注册三元组的两阶段同步（resolver 入队的修复项）
func (p *Processor) doSignupRepair(ctx context.Context, item *model.SyncItem) error {
	if p.resolver == nil {
		return fmt.Errorf("signup repair item %s but no resolver wired", item.ID)
	}
	userID, _ := item.Payload["user_id"].(string)
	hostID, _ := item.Payload["host_account_id"].(string)
	guestID, _ := item.Payload["guest_account_id"].(string)
	if userID == "" || hostID == "" || guestID == "" {
		return fmt.Errorf("signup repair payload incomplete")
	}
	result := p.resolver.Run(ctx, userID, hostID, guestID)
	if result.Err != nil {
		return result.Err
	}
	return nil
}

func (p *Processor) translate(item *model.SyncItem) (string, map[string]interface{}, error) {
	payload := map[string]interface{}(item.Payload)
	if err := mapper.ValidatePayload(item.EntityType, payload); err != nil {
		return "", nil, err
	}
	table, err := mapper.MapEntityName(item.EntityType)
	if err != nil {
		return "", nil, err
	}
	fields, err := mapper.MapFields(item.EntityType, payload)
	if err != nil {
		return "", nil, err
	}
	return table, fields, nil
}

func (p *Processor) fail(ctx context.Context, item *model.SyncItem, cause error) {
	fatal := isFatalFailure(cause)
	if fatal {
		logger.Error("sync item failed permanently",
			zap.String("item", item.ID),
			zap.String("entity", item.EntityType),
			zap.String("operation", string(item.Operation)),
			zap.Error(cause))
		sentry.CaptureException(fmt.Errorf("sync item %s pinned failed: %w", item.ID, cause))
	} else {
		logger.Warn("sync item failed, will retry",
			zap.String("item", item.ID),
			zap.String("entity", item.EntityType),
			zap.Int("retry_count", item.RetryCount),
			zap.Error(cause))
	}
	if err := p.queue.MarkFailed(ctx, item.ID, cause.Error(), fatal); err != nil {
		logger.Error("mark failed failed", zap.String("item", item.ID), zap.Error(err))
	}
}

// isFatalFailure 统一错误分类：遗留平台 4xx、映射/校验错误不可重试，
// 其余（超时、5xx、连接失败、external id 未就绪）排期退避重试。
func isFatalFailure(err error) bool {
	if legacy.IsFatal(err) {
		return true
	}
	if errors.Is(err, mapper.ErrUnknownEntity) || errors.Is(err, mapper.ErrUnknownField) || errors.Is(err, mapper.ErrInvalidPayload) {
		return true
	}
	return false
}
