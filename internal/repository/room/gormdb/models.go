package gormdb

import (
	"time"

	"github.com/sharetube/synctube/internal/domain"
)

type UserModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

type RoomModel struct {
	Slug           string  `gorm:"primaryKey;size:64"`
	Title          string  `gorm:"size:128"`
	Topic          string  `gorm:"size:512"`
	OwnerID        *string `gorm:"size:64;index"`
	IsPrivate      bool
	UsersCanPause  bool
	UsersCanSkip   bool
	UsersCanAdd    bool
	UsersCanRemove bool
	UsersCanMove   bool

	PlaylistPosition int
	IsPlaying        bool
	StartTimestamp   time.Time
	LastPosition     int

	Playlist []PlaylistEntryModel `gorm:"foreignKey:RoomSlug;references:Slug;constraint:OnDelete:CASCADE"`
	Admins   []RoomAdminModel     `gorm:"foreignKey:RoomSlug;references:Slug;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RoomModel) TableName() string { return "rooms" }

type PlaylistEntryModel struct {
	ID       uint   `gorm:"primaryKey"`
	RoomSlug string `gorm:"size:64;index;not null"`
	Position int    `gorm:"not null"`
	VideoID  string `gorm:"size:32;not null"`
	AddedBy  string `gorm:"size:64"`
}

func (PlaylistEntryModel) TableName() string { return "playlist_entries" }

type RoomAdminModel struct {
	RoomSlug string `gorm:"primaryKey;size:64"`
	UserID   string `gorm:"primaryKey;size:64"`
}

func (RoomAdminModel) TableName() string { return "room_admins" }

func toModel(r *domain.Room) RoomModel {
	m := RoomModel{
		Slug:             r.ID,
		Title:            r.Settings.Title,
		Topic:            r.Settings.Topic,
		IsPrivate:        r.Settings.IsPrivate,
		UsersCanPause:    r.Settings.UsersCanPause,
		UsersCanSkip:     r.Settings.UsersCanSkip,
		UsersCanAdd:      r.Settings.UsersCanAdd,
		UsersCanRemove:   r.Settings.UsersCanRemove,
		UsersCanMove:     r.Settings.UsersCanMove,
		PlaylistPosition: r.Position,
		IsPlaying:        r.Player.IsPlaying,
		StartTimestamp:   r.Player.StartTimestamp,
		LastPosition:     r.Player.LastPosition,
	}
	if r.OwnerID != "" {
		owner := r.OwnerID
		m.OwnerID = &owner
	}

	return m
}

func (m RoomModel) toDomain() *domain.Room {
	r := &domain.Room{
		ID: m.Slug,
		Settings: domain.Settings{
			Title:          m.Title,
			Topic:          m.Topic,
			IsPrivate:      m.IsPrivate,
			UsersCanPause:  m.UsersCanPause,
			UsersCanSkip:   m.UsersCanSkip,
			UsersCanAdd:    m.UsersCanAdd,
			UsersCanRemove: m.UsersCanRemove,
			UsersCanMove:   m.UsersCanMove,
		},
		Position: m.PlaylistPosition,
		Player: domain.Player{
			IsPlaying:      m.IsPlaying,
			StartTimestamp: m.StartTimestamp,
			LastPosition:   m.LastPosition,
		},
		Playlist: make([]domain.PlaylistEntry, 0, len(m.Playlist)),
		AdminIDs: make([]string, 0, len(m.Admins)),
	}
	if m.OwnerID != nil {
		r.OwnerID = *m.OwnerID
	}
	for _, e := range m.Playlist {
		r.Playlist = append(r.Playlist, domain.PlaylistEntry{VideoID: e.VideoID, AddedBy: e.AddedBy})
	}
	for _, a := range m.Admins {
		r.AdminIDs = append(r.AdminIDs, a.UserID)
	}
	if r.Position > len(r.Playlist) {
		r.Position = len(r.Playlist)
	}

	return r
}
