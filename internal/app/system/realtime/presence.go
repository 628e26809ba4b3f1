package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence records which users are connected anywhere in the deployment.
type Presence interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	// Refresh extends the online mark of every given user.
	Refresh(ctx context.Context, userIDs []string) error
	// Online returns the subset of candidates that are connected.
	Online(ctx context.Context, candidates []string) ([]string, error)
}

/*─────────────────────────────────────────────────────────────────────────────*
| In-process presence                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// LocalPresence answers from this instance's registry. Used when Redis is not
// configured, i.e. single-instance deployments.
type LocalPresence struct {
	reg *Registry
}

// NewLocalPresence wraps reg.
func NewLocalPresence(reg *Registry) *LocalPresence { return &LocalPresence{reg: reg} }

func (p *LocalPresence) MarkOnline(context.Context, string) error  { return nil }
func (p *LocalPresence) MarkOffline(context.Context, string) error { return nil }
func (p *LocalPresence) Refresh(context.Context, []string) error   { return nil }

func (p *LocalPresence) Online(_ context.Context, candidates []string) ([]string, error) {
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if p.reg.IsOnline(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Redis presence                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// PresenceTTL is how long an online mark survives without a refresh.
const PresenceTTL = 2 * time.Minute

const presenceKeyPrefix = "hearth:presence:"

func presenceKey(userID string) string { return presenceKeyPrefix + userID }

// RedisPresence stores one expiring key per online user. Every instance
// refreshes the keys of its own connections well within PresenceTTL, so a
// crashed instance's users drop off on their own.
type RedisPresence struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisPresence uses rdb with PresenceTTL.
func NewRedisPresence(rdb redis.UniversalClient) *RedisPresence {
	return &RedisPresence{rdb: rdb, ttl: PresenceTTL}
}

func (p *RedisPresence) MarkOnline(ctx context.Context, userID string) error {
	return p.rdb.Set(ctx, presenceKey(userID), time.Now().UTC().Unix(), p.ttl).Err()
}

func (p *RedisPresence) MarkOffline(ctx context.Context, userID string) error {
	return p.rdb.Del(ctx, presenceKey(userID)).Err()
}

func (p *RedisPresence) Refresh(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := p.rdb.Pipeline()
	now := time.Now().UTC().Unix()
	for _, id := range userIDs {
		pipe.Set(ctx, presenceKey(id), now, p.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) Online(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}
	keys := make([]string, len(candidates))
	for i, id := range candidates {
		keys[i] = presenceKey(id)
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(candidates))
	for i, v := range vals {
		if v != nil {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}
