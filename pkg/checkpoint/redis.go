package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
)

// BackendRedis is the Redis hash backend
const BackendRedis = "redis"

// DefaultRedisKey is the hash that holds every project's entry
const DefaultRedisKey = "jiradataset:checkpoints"

// RedisStore keeps one JSON-encoded Entry per project in a single hash.
// HSET on a single field is atomic, so saves for different projects never
// overwrite each other.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
	logger logger.Logger
}

// NewRedisStore creates a Redis-backed store under key
func NewRedisStore(client *redis.Client, key string, log logger.Logger) *RedisStore {
	if log == nil {
		log = logger.GetLogger()
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client: client,
		key:    key,
		now:    time.Now,
		logger: log,
	}
}

// Backend implements Store
func (s *RedisStore) Backend() string {
	return BackendRedis
}

// Load implements Store
func (s *RedisStore) Load(ctx context.Context, project string) int {
	data, err := s.client.HGet(ctx, s.key, project).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).WarnWithFields("Checkpoint unreadable, starting from page 0", map[string]interface{}{
				"project": project,
				"key":     s.key,
			})
		}
		return 0
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.LastFetchedPage < 0 {
		s.logger.WarnWithFields("Corrupt checkpoint entry, starting from page 0", map[string]interface{}{
			"project": project,
			"key":     s.key,
		})
		return 0
	}

	s.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"project":    project,
		"page":       entry.LastFetchedPage,
		"updated_at": entry.UpdatedAt(),
	})
	return entry.LastFetchedPage
}

// Save implements Store
func (s *RedisStore) Save(ctx context.Context, project string, page int) error {
	data, err := json.Marshal(newEntry(page, s.now()))
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, project, data).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", project, err)
	}

	metrics.CheckpointSavesTotal.WithLabelValues(BackendRedis).Inc()
	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"project": project,
		"page":    page,
	})
	return nil
}

// All implements Store
func (s *RedisStore) All(ctx context.Context) (map[string]Entry, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints: %w", err)
	}

	entries := make(map[string]Entry, len(raw))
	for project, data := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			s.logger.WarnWithFields("Skipping corrupt checkpoint entry", map[string]interface{}{
				"project": project,
			})
			continue
		}
		entries[project] = entry
	}
	return entries, nil
}

// Reset implements Store
func (s *RedisStore) Reset(ctx context.Context, project string) error {
	var err error
	if project == "" {
		err = s.client.Del(ctx, s.key).Err()
	} else {
		err = s.client.HDel(ctx, s.key, project).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
