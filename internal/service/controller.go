package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/renthub/config"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/pkg/logger"
)

// RetryController 定时触发器。队列表本身才是持久状态，
// 控制器可随宿主进程重启，不丢任何队列成员。
// 多副本部署时用 redis 锁让同一节拍只有一个副本干活；
// 锁只是省力，正确性始终由队列的原子抢占兜底。
type RetryController struct {
	queue     repository.SyncQueueRepository
	processor *Processor
	rdb       *redis.Client // 可为 nil，退化为无锁
	cfg       config.SyncConfig
}

func NewRetryController(queue repository.SyncQueueRepository, processor *Processor, rdb *redis.Client, cfg config.SyncConfig) *RetryController {
	return &RetryController{queue: queue, processor: processor, rdb: rdb, cfg: cfg}
}

// Tick 主处理节拍：先廉价数一下有没有活，空转时不叫醒外部客户端。
// 可由任意外部调度器（定时器、cron、编排系统）直接调用。
func (c *RetryController) Tick(ctx context.Context) error {
	if !c.tryLock(ctx, "renthub:sync:tick", c.cfg.TickInterval) {
		return nil
	}
	n, err := c.queue.CountEligible(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	processed, err := c.processor.ProcessBatch(ctx, c.cfg.BatchSize)
	if err != nil {
		return err
	}
	logger.Info("sync tick processed batch",
		zap.Int("processed", processed), zap.Int64("eligible", n))
	return nil
}

// Sweep 失败项节拍：回收崩溃遗留的 processing 项，再走一轮处理
func (c *RetryController) Sweep(ctx context.Context) error {
	if !c.tryLock(ctx, "renthub:sync:sweep", c.cfg.SweepInterval) {
		return nil
	}
	released, err := c.queue.ReleaseStale(ctx, c.staleAfter())
	if err != nil {
		return err
	}
	if released > 0 {
		logger.Warn("released stale processing items", zap.Int64("count", released))
	}
	n, err := c.queue.CountEligible(ctx)
	if err != nil || n == 0 {
		return err
	}
	_, err = c.processor.ProcessBatch(ctx, c.cfg.BatchSize)
	return err
}

// Start 自带的 ticker 循环；返回停止函数
func (c *RetryController) Start() func(context.Context) error {
	stop := make(chan struct{})
	go c.loop(stop, c.cfg.TickInterval, c.Tick)
	go c.loop(stop, c.cfg.SweepInterval, c.Sweep)
	return func(ctx context.Context) error {
		close(stop)
		return nil
	}
}

func (c *RetryController) loop(stop <-chan struct{}, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := fn(context.Background()); err != nil {
				logger.Error("sync controller tick failed", zap.Error(err))
			}
		}
	}
}

func (c *RetryController) tryLock(ctx context.Context, key string, ttl time.Duration) bool {
	if c.rdb == nil {
		return true
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := c.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		// redis 不可用时不挡路
		logger.Warn("tick lock unavailable, proceeding without", zap.Error(err))
		return true
	}
	return ok
}

// staleAfter processing 项滞留多久算宿主死掉
func (c *RetryController) staleAfter() time.Duration {
	d := 4 * c.cfg.BatchDeadline
	if d < 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}
