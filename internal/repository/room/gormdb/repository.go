package gormdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/repository/room"
)

type repo struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepo(db *gorm.DB, logger *slog.Logger) *repo {
	return &repo{
		db:     db,
		logger: logger,
	}
}

func (r repo) FindRoom(ctx context.Context, slug string) (*domain.Room, error) {
	funcName := "gormdb.FindRoom"
	r.logger.DebugContext(ctx, funcName, "slug", slug)

	var m RoomModel
	err := r.db.WithContext(ctx).
		Preload("Playlist", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Admins").
		Take(&m, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, room.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	return m.toDomain(), nil
}

func (r repo) CreateRoom(ctx context.Context, rm *domain.Room) error {
	funcName := "gormdb.CreateRoom"
	r.logger.DebugContext(ctx, funcName, "slug", rm.ID)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RoomModel{}).Where("slug = ?", rm.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check room: %w", err)
		}
		if count > 0 {
			return room.ErrRoomAlreadyExists
		}

		return r.save(tx, rm)
	})
}

func (r repo) SaveRoom(ctx context.Context, rm *domain.Room) error {
	funcName := "gormdb.SaveRoom"
	r.logger.DebugContext(ctx, funcName, "slug", rm.ID, "position", rm.Position, "playlist_length", len(rm.Playlist))

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.save(tx, rm)
	})
}

// save replaces the room row and its child rows inside tx.
func (r repo) save(tx *gorm.DB, rm *domain.Room) error {
	m := toModel(rm)
	if err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns(updatableColumns),
		}).
		Create(&m).Error; err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	if err := tx.Where("room_slug = ?", rm.ID).Delete(&PlaylistEntryModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear playlist: %w", err)
	}
	if len(rm.Playlist) > 0 {
		entries := make([]PlaylistEntryModel, 0, len(rm.Playlist))
		for i, e := range rm.Playlist {
			entries = append(entries, PlaylistEntryModel{
				RoomSlug: rm.ID,
				Position: i,
				VideoID:  e.VideoID,
				AddedBy:  e.AddedBy,
			})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to save playlist: %w", err)
		}
	}

	if err := tx.Where("room_slug = ?", rm.ID).Delete(&RoomAdminModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear admins: %w", err)
	}
	if len(rm.AdminIDs) > 0 {
		admins := make([]RoomAdminModel, 0, len(rm.AdminIDs))
		for _, id := range rm.AdminIDs {
			admins = append(admins, RoomAdminModel{RoomSlug: rm.ID, UserID: id})
		}
		if err := tx.Create(&admins).Error; err != nil {
			return fmt.Errorf("failed to save admins: %w", err)
		}
	}

	return nil
}

var updatableColumns = []string{
	"title", "topic", "owner_id", "is_private",
	"users_can_pause", "users_can_skip", "users_can_add", "users_can_remove", "users_can_move",
	"playlist_position", "is_playing", "start_timestamp", "last_position", "updated_at",
}

func (r repo) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.findUser(ctx, "id = ?", id)
}

func (r repo) FindUserByName(ctx context.Context, name string) (domain.User, error) {
	return r.findUser(ctx, "name = ?", name)
}

func (r repo) findUser(ctx context.Context, query string, arg string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Take(&m, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, room.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return domain.User{ID: m.ID, Name: m.Name}, nil
}

func (r repo) SaveUser(ctx context.Context, u domain.User) error {
	m := UserModel{ID: u.ID, Name: u.Name}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		Create(&m).Error
}
