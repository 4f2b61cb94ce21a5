package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/renthub/config"
	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/internal/repository"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// 内存库一个连接就是一个库，收紧连接池避免拿到空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Account{}, &model.Listing{}, &model.Booking{}, &model.SyncItem{},
	))
	return db
}

func fastSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		BatchSize:     10,
		MaxRetries:    5,
		BackoffBase:   time.Millisecond,
		BackoffCap:    time.Second,
		TickInterval:  time.Minute,
		SweepInterval: 5 * time.Minute,
		BatchDeadline: 10 * time.Second,
	}
}

func newTestQueue(db *gorm.DB) repository.SyncQueueRepository {
	return repository.NewSyncQueueRepository(db, repository.BackoffPolicy{
		Base: time.Millisecond, Cap: time.Second,
	})
}

// fakeClient 打桩的遗留平台：内存里维护远端记录，支持按表/调用次数注错
type fakeClient struct {
	mu          sync.Mutex
	createCalls int
	updateCalls int
	getCalls    int
	nextID      int
	remote      map[string]map[string]interface{} // "table/extID" -> fields
	createFault func(table string, call int) error
	updateFault func(table, externalID string) error
}

func newFakeClient() *fakeClient {
	return &fakeClient{remote: make(map[string]map[string]interface{})}
}

func (f *fakeClient) Create(ctx context.Context, table string, fields map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createFault != nil {
		if err := f.createFault(table, f.createCalls); err != nil {
			return "", err
		}
	}
	f.nextID++
	id := fmt.Sprintf("ext-%d", f.nextID)
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	f.remote[table+"/"+id] = copied
	return id, nil
}

func (f *fakeClient) Update(ctx context.Context, table, externalID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateFault != nil {
		if err := f.updateFault(table, externalID); err != nil {
			return err
		}
	}
	rec, ok := f.remote[table+"/"+externalID]
	if !ok {
		rec = make(map[string]interface{})
		f.remote[table+"/"+externalID] = rec
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (f *fakeClient) Get(ctx context.Context, table, externalID string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	rec, ok := f.remote[table+"/"+externalID]
	if !ok {
		return nil, fmt.Errorf("not found: %s/%s", table, externalID)
	}
	copied := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		copied[k] = v
	}
	return copied, nil
}

func (f *fakeClient) counts() (creates, updates, gets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.updateCalls, f.getCalls
}

func (f *fakeClient) remoteField(table, externalID, field string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.remote[table+"/"+externalID]
	if !ok {
		return nil
	}
	return rec[field]
}
