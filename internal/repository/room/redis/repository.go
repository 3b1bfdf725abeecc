package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/repository/room"
)

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

func (r repo) FindRoom(ctx context.Context, slug string) (*domain.Room, error) {
	funcName := "redis.FindRoom"
	r.logger.DebugContext(ctx, funcName, "slug", slug)

	pipe := r.rc.Pipeline()
	hash := pipe.HGetAll(ctx, r.getRoomKey(slug))
	playlist := pipe.LRange(ctx, r.getPlaylistKey(slug), 0, -1)
	admins := pipe.SMembers(ctx, r.getAdminsKey(slug))
	if err := r.executePipe(ctx, pipe); err != nil {
		return nil, fmt.Errorf("failed to read room: %w", err)
	}

	if len(hash.Val()) == 0 {
		return nil, room.ErrRoomNotFound
	}

	var record roomRecord
	if err := hash.Scan(&record); err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}

	rm := record.toDomain(slug)
	rm.AdminIDs = admins.Val()
	for _, raw := range playlist.Val() {
		var entry domain.PlaylistEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode playlist entry: %w", err)
		}
		rm.Playlist = append(rm.Playlist, entry)
	}

	return rm, nil
}

func (r repo) CreateRoom(ctx context.Context, rm *domain.Room) error {
	funcName := "redis.CreateRoom"
	r.logger.DebugContext(ctx, funcName, "slug", rm.ID)

	roomKey := r.getRoomKey(rm.ID)
	err := r.rc.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, roomKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check room: %w", err)
		}
		if exists > 0 {
			return room.ErrRoomAlreadyExists
		}

		pipe := tx.TxPipeline()
		if err := r.save(ctx, pipe, rm); err != nil {
			return err
		}
		return r.executePipe(ctx, pipe)
	}, roomKey)
	if errors.Is(err, redis.TxFailedErr) {
		return room.ErrRoomAlreadyExists
	}

	return err
}

func (r repo) SaveRoom(ctx context.Context, rm *domain.Room) error {
	funcName := "redis.SaveRoom"
	r.logger.DebugContext(ctx, funcName, "slug", rm.ID, "position", rm.Position, "playlist_length", len(rm.Playlist))

	pipe := r.rc.TxPipeline()
	if err := r.save(ctx, pipe, rm); err != nil {
		return err
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	return nil
}

// save queues a full replacement of the room on pipe.
func (r repo) save(ctx context.Context, pipe redis.Pipeliner, rm *domain.Room) error {
	entries := make([]any, 0, len(rm.Playlist))
	for _, e := range rm.Playlist {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode playlist entry: %w", err)
		}
		entries = append(entries, raw)
	}

	if err := r.HSetStruct(ctx, pipe, r.getRoomKey(rm.ID), toRecord(rm)); err != nil {
		return err
	}

	playlistKey := r.getPlaylistKey(rm.ID)
	pipe.Del(ctx, playlistKey)
	if len(entries) > 0 {
		pipe.RPush(ctx, playlistKey, entries...)
	}

	adminsKey := r.getAdminsKey(rm.ID)
	pipe.Del(ctx, adminsKey)
	if len(rm.AdminIDs) > 0 {
		admins := make([]any, 0, len(rm.AdminIDs))
		for _, id := range rm.AdminIDs {
			admins = append(admins, id)
		}
		pipe.SAdd(ctx, adminsKey, admins...)
	}

	return nil
}

func (r repo) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	name, err := r.rc.HGet(ctx, r.getUserKey(id), "name").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, room.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return domain.User{ID: id, Name: name}, nil
}

func (r repo) FindUserByName(ctx context.Context, name string) (domain.User, error) {
	id, err := r.rc.Get(ctx, r.getUserNameKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, room.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return r.FindUserByID(ctx, id)
}

func (r repo) SaveUser(ctx context.Context, u domain.User) error {
	funcName := "redis.SaveUser"
	r.logger.DebugContext(ctx, funcName, "user_id", u.ID)

	old, err := r.FindUserByID(ctx, u.ID)
	if err != nil && !errors.Is(err, room.ErrUserNotFound) {
		return err
	}

	pipe := r.rc.TxPipeline()
	if err == nil && old.Name != u.Name {
		pipe.Del(ctx, r.getUserNameKey(old.Name))
	}
	pipe.HSet(ctx, r.getUserKey(u.ID), "name", u.Name)
	pipe.Set(ctx, r.getUserNameKey(u.Name), u.ID, 0)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// roomRecord is the room hash. StartTimestamp is unix milliseconds.
type roomRecord struct {
	Title          string `redis:"title"`
	Topic          string `redis:"topic"`
	IsPrivate      bool   `redis:"is_private"`
	UsersCanPause  bool   `redis:"users_can_pause"`
	UsersCanSkip   bool   `redis:"users_can_skip"`
	UsersCanAdd    bool   `redis:"users_can_add"`
	UsersCanRemove bool   `redis:"users_can_remove"`
	UsersCanMove   bool   `redis:"users_can_move"`
	OwnerID        string `redis:"owner_id"`
	Position       int    `redis:"position"`
	IsPlaying      bool   `redis:"is_playing"`
	StartTimestamp int64  `redis:"start_timestamp"`
	LastPosition   int    `redis:"last_position"`
}

func toRecord(rm *domain.Room) roomRecord {
	return roomRecord{
		Title:          rm.Settings.Title,
		Topic:          rm.Settings.Topic,
		IsPrivate:      rm.Settings.IsPrivate,
		UsersCanPause:  rm.Settings.UsersCanPause,
		UsersCanSkip:   rm.Settings.UsersCanSkip,
		UsersCanAdd:    rm.Settings.UsersCanAdd,
		UsersCanRemove: rm.Settings.UsersCanRemove,
		UsersCanMove:   rm.Settings.UsersCanMove,
		OwnerID:        rm.OwnerID,
		Position:       rm.Position,
		IsPlaying:      rm.Player.IsPlaying,
		StartTimestamp: rm.Player.StartTimestamp.UnixMilli(),
		LastPosition:   rm.Player.LastPosition,
	}
}

func (rec roomRecord) toDomain(slug string) *domain.Room {
	return &domain.Room{
		ID: slug,
		Settings: domain.Settings{
			Title:          rec.Title,
			Topic:          rec.Topic,
			IsPrivate:      rec.IsPrivate,
			UsersCanPause:  rec.UsersCanPause,
			UsersCanSkip:   rec.UsersCanSkip,
			UsersCanAdd:    rec.UsersCanAdd,
			UsersCanRemove: rec.UsersCanRemove,
			UsersCanMove:   rec.UsersCanMove,
		},
		OwnerID:  rec.OwnerID,
		Position: rec.Position,
		Player: domain.Player{
			IsPlaying:      rec.IsPlaying,
			StartTimestamp: time.UnixMilli(rec.StartTimestamp),
			LastPosition:   rec.LastPosition,
		},
	}
}
