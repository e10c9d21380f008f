package checkpoint

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"jiradataset/pkg/config"
	"jiradataset/pkg/logger"
)

// Entry is the recorded progress of one project
type Entry struct {
	LastFetchedPage int     `json:"last_fetched_page"`
	LastUpdated     float64 `json:"last_updated"`
}

// UpdatedAt converts the epoch-seconds timestamp to a time.Time
func (e Entry) UpdatedAt() time.Time {
	sec, frac := math.Modf(e.LastUpdated)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func newEntry(page int, now time.Time) Entry {
	return Entry{
		LastFetchedPage: page,
		LastUpdated:     float64(now.Unix()) + float64(now.Nanosecond())/1e9,
	}
}

// Store persists the last completed page index per project
type Store interface {
	// Load returns the last completed page for project, or 0 when none is
	// recorded or the stored data cannot be read.
	Load(ctx context.Context, project string) int
	// Save records page as the last completed page for project
	Save(ctx context.Context, project string, page int) error
	// All returns every recorded entry
	All(ctx context.Context) (map[string]Entry, error)
	// Reset removes the entry for project, or every entry when project is empty
	Reset(ctx context.Context, project string) error
	// Backend names the storage backend
	Backend() string
}

// Open creates the store selected by cfg.Backend. The returned close
// function releases backend connections.
func Open(ctx context.Context, cfg config.CheckpointConfig, log logger.Logger) (Store, func() error, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.Path, log), func() error { return nil }, nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, cfg.RedisKey, log), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
