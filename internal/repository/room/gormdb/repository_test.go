package gormdb

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()
	db, err := Open(&Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepo(db, slog.Default())
}

func TestRoomRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.FindRoom(ctx, "lobby")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	rm := domain.NewRoom("lobby")
	rm.Settings.Title = "Lobby"
	rm.Settings.UsersCanPause = false
	rm.OwnerID = "u1"
	rm.AdminIDs = []string{"u2", "u3"}
	rm.Playlist = []domain.PlaylistEntry{{VideoID: "A", AddedBy: "alice"}, {VideoID: "B", AddedBy: "bob"}}
	require.NoError(t, rm.ChangeVideo(1, domain.TimePadding, time.Unix(1700000000, 0)))
	require.NoError(t, r.CreateRoom(ctx, rm))

	assert.ErrorIs(t, r.CreateRoom(ctx, rm), room.ErrRoomAlreadyExists)

	got, err := r.FindRoom(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, rm.Settings, got.Settings)
	assert.Equal(t, rm.OwnerID, got.OwnerID)
	assert.ElementsMatch(t, rm.AdminIDs, got.AdminIDs)
	assert.Equal(t, rm.Playlist, got.Playlist)
	assert.Equal(t, 1, got.Position)
	assert.True(t, got.Player.IsPlaying)
	assert.Equal(t, -domain.TimePadding, got.Player.LastPosition)
	assert.True(t, rm.Player.StartTimestamp.Equal(got.Player.StartTimestamp))

	got.Playlist = got.Playlist[:1]
	got.Position = 1
	got.AdminIDs = nil
	got.OwnerID = ""
	got.Settings.UsersCanPause = true
	got.Pause(time.Unix(1700000010, 0))
	require.NoError(t, r.SaveRoom(ctx, got))

	again, err := r.FindRoom(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, []domain.PlaylistEntry{{VideoID: "A", AddedBy: "alice"}}, again.Playlist)
	assert.Empty(t, again.AdminIDs)
	assert.Empty(t, again.OwnerID)
	assert.True(t, again.Settings.UsersCanPause)
	assert.False(t, again.Player.IsPlaying)
	assert.Equal(t, 7, again.Player.LastPosition)
}

func TestSaveRoomUpserts(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	rm := domain.NewRoom("fresh")
	rm.Settings.IsPrivate = true
	require.NoError(t, r.SaveRoom(ctx, rm))

	got, err := r.FindRoom(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, got.Settings.IsPrivate)
	assert.True(t, got.Settings.UsersCanMove)
	assert.Empty(t, got.Playlist)
	assert.True(t, got.Ended())
}

func TestUsers(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveUser(ctx, domain.User{ID: "u1", Name: "alice"}))

	byID, err := r.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)

	byName, err := r.FindUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)

	_, err = r.FindUserByName(ctx, "bob")
	assert.ErrorIs(t, err, room.ErrUserNotFound)

	require.NoError(t, r.SaveUser(ctx, domain.User{ID: "u1", Name: "alicia"}))
	byID, err = r.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alicia", byID.Name)
}
