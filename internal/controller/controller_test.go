package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/repository/room/inmemory"
	"github.com/sharetube/synctube/internal/service/room"
	"github.com/sharetube/synctube/internal/service/videoinfo"
	"github.com/sharetube/synctube/pkg/authtoken"
)

type stubVideoInfo struct{}

func (stubVideoInfo) Get(_ context.Context, videoID string) (*videoinfo.Info, error) {
	if videoID == "dQw4w9WgXcQ" {
		return &videoInfoFixture, nil
	}
	return nil, videoinfo.ErrInvalidVideo
}

var videoInfoFixture = videoinfo.Info{VideoID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Author: "Rick Astley", Duration: 213}

type testServer struct {
	*httptest.Server
	tokens *authtoken.Manager
	users  interface {
		SaveUser(ctx context.Context, u domain.User) error
	}
}

func newTestServer(t *testing.T, autoCreate bool) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := inmemory.NewRepo(logger)
	tokens := authtoken.NewManager("secret")

	svc, err := room.NewService(room.Deps{
		RoomRepo:  repo,
		VideoInfo: stubVideoInfo{},
		Tokens:    tokens,
	}, &room.Config{WorkerID: uuid.NewString(), AutoCreateRooms: autoCreate}, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(NewController(svc, logger).GetMux())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, tokens: tokens, users: repo}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func (s *testServer) token(t *testing.T, id, name string) string {
	t.Helper()
	require.NoError(t, s.users.SaveUser(context.Background(), domain.User{ID: id, Name: name}))

	token, err := s.tokens.Issue(id, time.Hour)
	require.NoError(t, err)
	return token
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one with the given action arrives.
func readUntil(t *testing.T, conn *websocket.Conn, action string) map[string]any {
	t.Helper()

	for {
		if msg := read(t, conn); msg["action"] == action {
			return msg
		}
	}
}

func readActions(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()

	actions := make([]string, 0, n)
	for range n {
		actions = append(actions, read(t, conn)["action"].(string))
	}
	return actions
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}

		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "unexpected error: %v", err)
		assert.Equal(t, code, closeErr.Code)
		return
	}
}

func TestJoinAndPlay(t *testing.T) {
	srv := newTestServer(t, true)
	conn := srv.dial(t)

	send(t, conn, map[string]any{"action": "join", "room_id": "lobby"})
	assert.Equal(t, []string{"playlistupdate", "setvideo", "sync", "config_update", "userlistupdate"}, readActions(t, conn, 5))

	send(t, conn, map[string]any{"action": "addvideo", "video_id": "dQw4w9WgXcQ"})
	update := read(t, conn)
	assert.Equal(t, "playlistupdate", update["action"])
	assert.Equal(t, "add", update["type"])
	assert.Equal(t, float64(0), update["first_index"])

	setVideo := read(t, conn)
	assert.Equal(t, "setvideo", setVideo["action"])
	assert.Equal(t, "dQw4w9WgXcQ", setVideo["video_id"])
	assert.Equal(t, "youtube", setVideo["video_service"])

	sync := read(t, conn)
	assert.Equal(t, true, sync["is_playing"])

	send(t, conn, map[string]any{"action": "pause"})
	sync = readUntil(t, conn, "sync")
	assert.Equal(t, false, sync["is_playing"])
}

func TestActionErrors(t *testing.T) {
	srv := newTestServer(t, true)
	conn := srv.dial(t)

	send(t, conn, map[string]any{"action": "play"})
	msg := read(t, conn)
	assert.Equal(t, "error", msg["action"])
	assert.Equal(t, "not_joined", msg["reason"])

	send(t, conn, map[string]any{"action": "dance"})
	assert.Equal(t, "invalid_action", read(t, conn)["reason"])

	send(t, conn, map[string]any{"action": "join", "room_id": "no spaces allowed"})
	assert.Equal(t, "invalid_request", read(t, conn)["reason"])

	send(t, conn, map[string]any{"action": "join", "room_id": "lobby"})
	readActions(t, conn, 5)

	send(t, conn, map[string]any{"action": "addvideo", "video_id": "aaaaaaaaaaa"})
	assert.Equal(t, "invalid_video", read(t, conn)["reason"])

	send(t, conn, map[string]any{"action": "removevideo", "index": 3})
	assert.Equal(t, "index_out_of_range", read(t, conn)["reason"])

	send(t, conn, map[string]any{"action": "seek", "time": "later"})
	assert.Equal(t, "invalid_request", read(t, conn)["reason"])

	// the connection survives all of the above
	send(t, conn, map[string]any{"action": "sync"})
	assert.Equal(t, "sync", read(t, conn)["action"])
}

func TestMalformedMessageClosesConnection(t *testing.T) {
	srv := newTestServer(t, true)

	conn := srv.dial(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	expectClose(t, conn, websocket.ClosePolicyViolation)

	conn = srv.dial(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"room_id": "lobby"}`)))
	expectClose(t, conn, websocket.ClosePolicyViolation)

	conn = srv.dial(t)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestJoinUnknownRoom(t *testing.T) {
	srv := newTestServer(t, false)
	conn := srv.dial(t)

	send(t, conn, map[string]any{"action": "join", "room_id": "nowhere"})
	msg := read(t, conn)
	assert.Equal(t, "room_not_found", msg["action"])
	assert.Equal(t, "nowhere", msg["room_id"])
	expectClose(t, conn, websocket.CloseNormalClosure)
}

func TestKickUser(t *testing.T) {
	srv := newTestServer(t, true)
	owner := srv.dial(t)
	guest := srv.dial(t)

	send(t, owner, map[string]any{"action": "join", "room_id": "lobby", "credential": srv.token(t, "u1", "alice")})
	readActions(t, owner, 5)

	send(t, guest, map[string]any{"action": "join", "room_id": "lobby"})
	list := readUntil(t, guest, "userlistupdate")["userlist"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, true, list[0].(map[string]any)["isowner"])
	guestName := list[1].(map[string]any)["username"].(string)

	send(t, guest, map[string]any{"action": "kickuser", "username": "alice"})
	assert.Equal(t, "not_allowed", readUntil(t, guest, "error")["reason"])

	send(t, owner, map[string]any{"action": "kickuser", "username": guestName, "message": "bye"})
	kicked := readUntil(t, guest, "kicked")
	assert.Equal(t, "alice", kicked["by"])
	assert.Equal(t, "bye", kicked["message"])
	expectClose(t, guest, 4001)

	// the owner sees the guest leave
	for {
		list := readUntil(t, owner, "userlistupdate")["userlist"].([]any)
		if len(list) == 1 {
			break
		}
	}
}

func TestRoomsAPI(t *testing.T) {
	srv := newTestServer(t, false)

	body := []byte(`{"slug": "movie-night", "title": "Movie night"}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/rooms", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+srv.token(t, "u1", "alice"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Room room.CreateRoomResponse `json:"room"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "movie-night", created.Room.RoomID)
	assert.Equal(t, "u1", created.Room.OwnerID)

	resp, err = http.Post(srv.URL+"/api/v1/rooms", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/rooms", "application/json", strings.NewReader(`{"slug": "bad slug"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// the created room can now be joined with auto creation off
	conn := srv.dial(t)
	send(t, conn, map[string]any{"action": "join", "room_id": "movie-night"})
	assert.Equal(t, "playlistupdate", read(t, conn)["action"])

	resp, err = http.Get(srv.URL + "/api/v1/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()

	var list struct {
		Rooms []room.RoomListEntry `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []room.RoomListEntry{{Name: "movie-night", Title: "Movie night", UserCount: 1}}, list.Rooms)

	resp, err = http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
