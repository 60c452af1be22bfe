package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if c.client == nil {
		res.Healthy = false
		res.Error = "redis not configured"
		return res
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// Pinger is anything that can answer a liveness round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker reports whether the listing source answers. It is optional:
// the engine keeps serving last good results while the source is down.
type UpstreamChecker struct {
	pinger Pinger
}

func NewUpstreamChecker(p Pinger) Checker {
	if p == nil {
		return nil
	}
	return &UpstreamChecker{pinger: p}
}

func (c *UpstreamChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "upstream", Healthy: true, Optional: true}
	if err := c.pinger.Ping(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
