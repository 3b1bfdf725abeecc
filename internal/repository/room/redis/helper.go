package redis

import (
	"context"
	"reflect"

	"github.com/redis/go-redis/v9"
)

func (r repo) getRoomKey(slug string) string {
	return "synctube:room:" + slug
}

func (r repo) getPlaylistKey(slug string) string {
	return "synctube:room:" + slug + ":playlist"
}

func (r repo) getAdminsKey(slug string) string {
	return "synctube:room:" + slug + ":admins"
}

func (r repo) getUserKey(id string) string {
	return "synctube:user:" + id
}

func (r repo) getUserNameKey(name string) string {
	return "synctube:username:" + name
}

// HSetStruct queues an HSET of every redis-tagged field of value. Nil pointer fields are skipped.
func (r repo) HSetStruct(ctx context.Context, c redis.Pipeliner, key string, value any) error {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	fields := make(map[string]any)
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" {
			tag = t.Field(i).Name
		}

		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			fields[tag] = field.Elem().Interface()
		} else {
			fields[tag] = field.Interface()
		}
	}

	return c.HSet(ctx, key, fields).Err()
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && err != redis.Nil {
				return err
			}
		}

		return err
	}

	return nil
}
