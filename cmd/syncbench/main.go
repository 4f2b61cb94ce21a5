package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/d60-Lab/renthub/config"
	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/internal/service"
	"github.com/d60-Lab/renthub/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// stubClient 本地打桩的遗留平台：固定延迟模拟外部往返
type stubClient struct {
	latency time.Duration
	creates atomic.Int64
	updates atomic.Int64
}

func (s *stubClient) Create(ctx context.Context, entity string, fields map[string]interface{}) (string, error) {
	time.Sleep(s.latency)
	s.creates.Add(1)
	return uuid.New().String(), nil
}

func (s *stubClient) Update(ctx context.Context, entity, externalID string, fields map[string]interface{}) error {
	time.Sleep(s.latency)
	s.updates.Add(1)
	return nil
}

func (s *stubClient) Get(ctx context.Context, entity, externalID string) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	N := envInt("N", 5000)
	BATCH := envInt("BATCH", cfg.Sync.BatchSize)
	CONC := envInt("CONC", 4)
	LATENCY := envInt("LATENCY_MS", 2)

	queueRepo := repository.NewSyncQueueRepository(db, repository.BackoffPolicy{
		Base: cfg.Sync.BackoffBase, Cap: cfg.Sync.BackoffCap,
	})
	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	listingRepo := repository.NewListingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	records := service.NewRecordDirectory(userRepo, accountRepo, listingRepo, bookingRepo)

	client := &stubClient{latency: time.Duration(LATENCY) * time.Millisecond}
	processor := service.NewProcessor(queueRepo, client, records, nil, time.Minute)

	ctx := context.Background()

	// seed: N 个房源 + 对应 INSERT 队列项
	t0 := time.Now()
	for i := 0; i < N; i++ {
		listing := &model.Listing{ID: uuid.New().String(), HostAccountID: "bench-host", Title: fmt.Sprintf("listing %d", i), NightlyCents: 9900, Active: true}
		_ = listingRepo.Create(ctx, listing)
		_ = queueRepo.Enqueue(ctx, &model.SyncItem{
			EntityType:    "listing",
			Operation:     model.SyncOpInsert,
			Payload:       datatypes.JSONMap{"host_account_id": "bench-host", "title": listing.Title, "nightly_cents": 9900, "active": true},
			LocalRecordID: listing.ID,
			MaxRetries:    cfg.Sync.MaxRetries,
		})
	}
	enqueueDur := time.Since(t0)

	// drain: CONC 个处理器并发抢批
	lat := make(chan time.Duration, N)
	t1 := time.Now()
	done := make(chan struct{})
	for w := 0; w < CONC; w++ {
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				st := time.Now()
				n, err := processor.ProcessBatch(ctx, BATCH)
				if err == nil && n > 0 {
					lat <- time.Since(st)
				}
				if n == 0 {
					time.Sleep(10 * time.Millisecond)
				}
			}
		}()
	}
	for client.creates.Load() < int64(N) {
		time.Sleep(20 * time.Millisecond)
	}
	close(done)
	drainDur := time.Since(t1)

	close(lat)
	var batchLat []time.Duration
	for d := range lat {
		batchLat = append(batchLat, d)
	}
	sort.Slice(batchLat, func(i, j int) bool { return batchLat[i] < batchLat[j] })
	pct := func(p float64) time.Duration {
		if len(batchLat) == 0 {
			return 0
		}
		idx := int(float64(len(batchLat)-1) * p)
		return batchLat[idx]
	}

	fmt.Printf("items=%d batch=%d conc=%d\n", N, BATCH, CONC)
	fmt.Printf("enqueue: %v (%.0f items/s)\n", enqueueDur, float64(N)/enqueueDur.Seconds())
	fmt.Printf("drain:   %v (%.0f items/s)\n", drainDur, float64(N)/drainDur.Seconds())
	fmt.Printf("batch latency p50=%v p95=%v p99=%v\n", pct(0.50), pct(0.95), pct(0.99))
}
