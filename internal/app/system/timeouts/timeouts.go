// Package timeouts holds the deadlines handlers put on database work.
//
// Pick the bucket by the shape of the operation:
//   - Ping: health checks
//   - Short: one document, or one membership transition
//   - Medium: feeds, lists and searches
//   - Long: cascades such as group or account deletion
//   - Batch: stats aggregations over whole collections
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

// Config is a full set of timeouts. In Configure, zero fields keep the
// current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration  { return get(func(c Config) time.Duration { return c.Batch }) }

// Current returns a snapshot of every timeout.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// fields pairs each environment suffix with the Config field it sets.
func fields(c *Config) []struct {
	name string
	dst  *time.Duration
} {
	return []struct {
		name string
		dst  *time.Duration
	}{
		{"PING", &c.Ping},
		{"SHORT", &c.Short},
		{"MEDIUM", &c.Medium},
		{"LONG", &c.Long},
		{"BATCH", &c.Batch},
	}
}

// Configure overrides the positive fields of cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	src := fields(&cfg)
	for i, f := range fields(&cur) {
		if d := *src[i].dst; d > 0 {
			*f.dst = d
		}
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	cur = defaults()
	mu.Unlock()
}

// ConfigureFromEnv reads <prefix>_TIMEOUT_{PING,SHORT,MEDIUM,LONG,BATCH}, for
// example HEARTH_TIMEOUT_SHORT=3s. Values that are missing, unparsable or not
// positive are skipped. It returns how many timeouts it set.
func ConfigureFromEnv(prefix string) int {
	var cfg Config
	n := 0
	for _, f := range fields(&cfg) {
		key := "TIMEOUT_" + f.name
		if prefix != "" {
			key = prefix + "_" + key
		}
		d, err := time.ParseDuration(os.Getenv(key))
		if err != nil || d <= 0 {
			continue
		}
		*f.dst = d
		n++
	}
	Configure(cfg)
	return n
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning naming
// operation when the deadline was what ended the context.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "group delete cascade")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
