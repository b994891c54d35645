package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/metrics"
	red "pix-subscription/internal/infra/redis"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

const activePlansKey = "plans:active"

// planRepoCacheDecorator serves plan reads from Redis. Reads inside a
// transaction always go to the inner repository.
type planRepoCacheDecorator struct {
	inner  repository.PlanRepository
	cache  red.RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "plan_cache").Logger()
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, logger: &l}
}

func planIDKey(id string) string               { return fmt.Sprintf("plan:%s", id) }
func planIntervalKey(it model.PlanType) string { return fmt.Sprintf("plan:interval:%s", it) }

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	return cachedOne(ctx, d, "plan", planIDKey(id), func() (*model.Plan, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *planRepoCacheDecorator) FindActiveByInterval(ctx context.Context, tx repository.Tx, interval model.PlanType) (*model.Plan, error) {
	if tx != nil {
		return d.inner.FindActiveByInterval(ctx, tx, interval)
	}
	return cachedOne(ctx, d, "plan_interval", planIntervalKey(interval), func() (*model.Plan, error) {
		return d.inner.FindActiveByInterval(ctx, tx, interval)
	})
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	if tx == nil {
		if val, err := d.cache.Get(ctx, activePlansKey); err == nil {
			var plans []*model.Plan
			if json.Unmarshal([]byte(val), &plans) == nil {
				metrics.IncCacheRequest("plan_list", "hit")
				return plans, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			d.logger.Warn().Err(err).Msg("plan list cache read failed")
		}
		metrics.IncCacheRequest("plan_list", "miss")
	}

	plans, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if tx == nil && len(plans) > 0 {
		d.store(ctx, activePlansKey, plans)
	}
	return plans, nil
}

// Save invalidates every key the plan may be cached under.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	if err := d.cache.Del(ctx, planIDKey(plan.ID), planIntervalKey(plan.Interval), activePlansKey); err != nil {
		d.logger.Warn().Err(err).Str("plan_id", plan.ID).Msg("plan cache invalidation failed")
	}
	return d.inner.Save(ctx, tx, plan)
}

func (d *planRepoCacheDecorator) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
	}
}

func cachedOne(ctx context.Context, d *planRepoCacheDecorator, name, key string, load func() (*model.Plan, error)) (*model.Plan, error) {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest(name, "hit")
			return &plan, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}

	metrics.IncCacheRequest(name, "miss")
	plan, err := load()
	if err != nil {
		return nil, err
	}
	if plan != nil {
		d.store(ctx, key, plan)
	}
	return plan, nil
}
