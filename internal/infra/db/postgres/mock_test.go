//go:build !integration

package postgres

import (
	"context"
	"time"

	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
	red "pix-subscription/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPlanRepo mocks the database repository that the Plan decorator wraps.
type mockInnerPlanRepo struct {
	SaveFunc                 func(ctx context.Context, tx repository.Tx, plan *model.Plan) error
	FindByIDFunc             func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
	FindActiveByIntervalFunc func(ctx context.Context, tx repository.Tx, interval model.PlanType) (*model.Plan, error)
	ListActiveFunc           func(ctx context.Context, tx repository.Tx) ([]*model.Plan, error)
}

func (m *mockInnerPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	return m.SaveFunc(ctx, tx, plan)
}
func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerPlanRepo) FindActiveByInterval(ctx context.Context, tx repository.Tx, interval model.PlanType) (*model.Plan, error) {
	return m.FindActiveByIntervalFunc(ctx, tx, interval)
}
func (m *mockInnerPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	return m.ListActiveFunc(ctx, tx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc        func(ctx context.Context, key string) (string, error)
	SetFunc        func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc        func(ctx context.Context, keys ...string) error
	PingFunc       func(ctx context.Context) error
	IncrWindowFunc func(ctx context.Context, key string, window time.Duration) (int64, error)
	CloseFunc      func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return m.IncrWindowFunc(ctx, key, window)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
