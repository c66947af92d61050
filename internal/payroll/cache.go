package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ViewCache serves workflow reads from Redis. Reads need no locking; only
// transitions carry the conditional-write guarantee, so a slightly stale
// view is acceptable and invalidated on every transition.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewViewCache constructs a ViewCache.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ViewCache{client: client, ttl: ttl}
}

func viewCacheKey(runID uuid.UUID) string {
	return "payroll:view:" + runID.String()
}

// Get returns the cached view or builds it once per key under concurrent
// demand.
func (c *ViewCache) Get(ctx context.Context, runID uuid.UUID, build func(context.Context) (WorkflowView, error)) (WorkflowView, error) {
	if c == nil || c.client == nil {
		return build(ctx)
	}
	key := viewCacheKey(runID)
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var view WorkflowView
		if err := json.Unmarshal(data, &view); err == nil {
			return view, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return build(ctx)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		view, err := build(ctx)
		if err != nil {
			return WorkflowView{}, err
		}
		if data, err := json.Marshal(view); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttl).Err()
		}
		return view, nil
	})
	if err != nil {
		return WorkflowView{}, err
	}
	return result.(WorkflowView), nil
}

// Invalidate drops the cached view after a transition.
func (c *ViewCache) Invalidate(ctx context.Context, runID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, viewCacheKey(runID)).Err()
}
