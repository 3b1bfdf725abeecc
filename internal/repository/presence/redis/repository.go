package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/synctube/internal/domain"
)

// repo stores each worker's room membership as one hash per worker with a TTL,
// so a crashed worker's users disappear on their own.
type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

// SetWorkerRooms replaces the membership published by workerID.
func (r repo) SetWorkerRooms(ctx context.Context, workerID string, rooms map[string][]domain.Identity, ttl time.Duration) error {
	funcName := "presence.redis.SetWorkerRooms"
	r.logger.DebugContext(ctx, funcName, "worker_id", workerID, "rooms", len(rooms))

	key := r.getWorkerKey(workerID)
	fields := make(map[string]any, len(rooms))
	for roomID, users := range rooms {
		if len(users) == 0 {
			continue
		}
		data, err := json.Marshal(users)
		if err != nil {
			return fmt.Errorf("failed to marshal users: %w", err)
		}
		fields[roomID] = data
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
	}

	return r.executePipe(ctx, pipe)
}

func (r repo) RemoveWorker(ctx context.Context, workerID string) error {
	return r.rc.Del(ctx, r.getWorkerKey(workerID)).Err()
}

// Snapshot merges the membership of every worker except excludeWorkerID, keyed by room id.
func (r repo) Snapshot(ctx context.Context, excludeWorkerID string) (map[string][]domain.Identity, error) {
	funcName := "presence.redis.Snapshot"
	own := r.getWorkerKey(excludeWorkerID)
	rooms := make(map[string][]domain.Identity)

	iter := r.rc.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == own {
			continue
		}

		fields, err := r.rc.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}

		for roomID, data := range fields {
			var users []domain.Identity
			if err := json.Unmarshal([]byte(data), &users); err != nil {
				r.logger.WarnContext(ctx, funcName, "key", key, "room_id", roomID, "error", err)
				continue
			}
			rooms[roomID] = append(rooms[roomID], users...)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan worker keys: %w", err)
	}

	r.logger.DebugContext(ctx, funcName, "rooms", len(rooms))
	return rooms, nil
}
