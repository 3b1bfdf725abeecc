package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	return AppConfig{
		Secret:           "secret",
		LogLevel:         "info",
		DBDriver:         "memory",
		VideoCacheSize:   100,
		PlaylistLimit:    100,
		AutoCreateRooms:  true,
		SweepInterval:    2 * time.Second,
		PresenceInterval: 5 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *AppConfig)
		wantErr string
	}{
		{name: "valid", modify: func(cfg *AppConfig) {}},
		{name: "missing secret", modify: func(cfg *AppConfig) { cfg.Secret = "" }, wantErr: "secret is required"},
		{name: "unknown driver", modify: func(cfg *AppConfig) { cfg.DBDriver = "mysql" }, wantErr: "unsupported db driver"},
		{name: "sqlite without dsn", modify: func(cfg *AppConfig) { cfg.DBDriver = "sqlite" }, wantErr: "db dsn is required"},
		{name: "cluster without redis", modify: func(cfg *AppConfig) { cfg.Cluster = true }, wantErr: "require redis"},
		{name: "redis store without redis", modify: func(cfg *AppConfig) { cfg.DBDriver = "redis" }, wantErr: "require redis"},
		{
			name: "cluster with memory store",
			modify: func(cfg *AppConfig) {
				cfg.Cluster = true
				cfg.RedisHost = "localhost"
			},
			wantErr: "shared database",
		},
		{
			name:    "redis with memory store",
			modify:  func(cfg *AppConfig) { cfg.RedisHost = "localhost" },
			wantErr: "memory store cannot be shared",
		},
		{
			name: "redis with redis store",
			modify: func(cfg *AppConfig) {
				cfg.RedisHost = "localhost"
				cfg.DBDriver = "redis"
			},
		},
		{name: "zero playlist limit", modify: func(cfg *AppConfig) { cfg.PlaylistLimit = 0 }, wantErr: "playlist limit"},
		{name: "zero sweep interval", modify: func(cfg *AppConfig) { cfg.SweepInterval = 0 }, wantErr: "intervals must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	require.NoError(t, err)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestComponentsServeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := validConfig()
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port
	cfg.DBDriver = "redis"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := newComponents(ctx, &cfg, logger)
	require.NoError(t, err)
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.service.Run(ctx) }()

	srv := httptest.NewServer(c.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "join", "room_id": "lobby"}))

	var msg map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "playlistupdate", msg["action"])

	var presenceKeys []string
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "synctube:userset:") {
			presenceKeys = append(presenceKeys, key)
		}
	}
	assert.Len(t, presenceKeys, 1)
	assert.True(t, mr.Exists("synctube:room:lobby"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("room service did not stop")
	}
}
