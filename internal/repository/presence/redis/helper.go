package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "synctube:userset:"

func (r repo) getWorkerKey(workerID string) string {
	return keyPrefix + workerID
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
