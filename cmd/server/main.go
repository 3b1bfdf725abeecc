package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/synctube/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	secret = configVar[string]{
		envKey:  "SYNCTUBE_SECRET",
		flagKey: "secret",
		usage:   "Secret used to verify user credentials",
	}
	port = configVar[int]{
		envKey:       "SYNCTUBE_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SYNCTUBE_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SYNCTUBE_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:  "REDIS_HOST",
		flagKey: "redis-host",
		usage:   "Redis host, empty disables the bus and presence",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
	dbDriver = configVar[string]{
		envKey:       "SYNCTUBE_DB_DRIVER",
		flagKey:      "db-driver",
		defaultValue: "sqlite",
		usage:        "Room store: memory, redis, sqlite or postgres",
	}
	dbDSN = configVar[string]{
		envKey:       "SYNCTUBE_DB_DSN",
		flagKey:      "db-dsn",
		defaultValue: "synctube.db",
		usage:        "Database DSN",
	}
	youtubeAPIKey = configVar[string]{
		envKey:  "YOUTUBE_API_KEY",
		flagKey: "youtube-api-key",
		usage:   "YouTube Data API key",
	}
	videoInfoTimeout = configVar[time.Duration]{
		envKey:       "SYNCTUBE_VIDEO_INFO_TIMEOUT",
		flagKey:      "video-info-timeout",
		defaultValue: 10 * time.Second,
		usage:        "Video info lookup timeout",
	}
	videoCacheSize = configVar[int]{
		envKey:       "SYNCTUBE_VIDEO_CACHE_SIZE",
		flagKey:      "video-cache-size",
		defaultValue: 10000,
		usage:        "Maximum number of cached video info entries",
	}
	playlistLimit = configVar[int]{
		envKey:       "SYNCTUBE_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 100,
		usage:        "Maximum number of videos in the playlist",
	}
	autoCreateRooms = configVar[bool]{
		envKey:       "SYNCTUBE_AUTOCREATE_ROOMS",
		flagKey:      "autocreate-rooms",
		defaultValue: true,
		usage:        "Create unknown rooms on join",
	}
	cluster = configVar[bool]{
		envKey:  "SYNCTUBE_CLUSTER",
		flagKey: "cluster",
		usage:   "Lock rooms across workers and reload state before each mutation",
	}
	sweepInterval = configVar[time.Duration]{
		envKey:       "SYNCTUBE_SWEEP_INTERVAL",
		flagKey:      "sweep-interval",
		defaultValue: 2 * time.Second,
		usage:        "Interval between video end checks",
	}
	presenceInterval = configVar[time.Duration]{
		envKey:       "SYNCTUBE_PRESENCE_INTERVAL",
		flagKey:      "presence-interval",
		defaultValue: 5 * time.Second,
		usage:        "Interval between presence refreshes",
	}
)

func loadAppConfig() *app.AppConfig {
	// .env is optional
	_ = godotenv.Load()

	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.String(dbDriver.flagKey, dbDriver.defaultValue, dbDriver.usage)
	pflag.String(dbDSN.flagKey, dbDSN.defaultValue, dbDSN.usage)
	pflag.String(youtubeAPIKey.flagKey, youtubeAPIKey.defaultValue, youtubeAPIKey.usage)
	pflag.Duration(videoInfoTimeout.flagKey, videoInfoTimeout.defaultValue, videoInfoTimeout.usage)
	pflag.Int(videoCacheSize.flagKey, videoCacheSize.defaultValue, videoCacheSize.usage)
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, playlistLimit.usage)
	pflag.Bool(autoCreateRooms.flagKey, autoCreateRooms.defaultValue, autoCreateRooms.usage)
	pflag.Bool(cluster.flagKey, cluster.defaultValue, cluster.usage)
	pflag.Duration(sweepInterval.flagKey, sweepInterval.defaultValue, sweepInterval.usage)
	pflag.Duration(presenceInterval.flagKey, presenceInterval.defaultValue, presenceInterval.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	port.bind()
	host.bind()
	logLevel.bind()
	redisPort.bind()
	redisHost.bind()
	redisPassword.bind()
	dbDriver.bind()
	dbDSN.bind()
	youtubeAPIKey.bind()
	videoInfoTimeout.bind()
	videoCacheSize.bind()
	playlistLimit.bind()
	autoCreateRooms.bind()
	cluster.bind()
	sweepInterval.bind()
	presenceInterval.bind()

	return &app.AppConfig{
		Secret:           viper.GetString(secret.flagKey),
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
		DBDriver:         viper.GetString(dbDriver.flagKey),
		DBDSN:            viper.GetString(dbDSN.flagKey),
		YouTubeAPIKey:    viper.GetString(youtubeAPIKey.flagKey),
		VideoInfoTimeout: viper.GetDuration(videoInfoTimeout.flagKey),
		VideoCacheSize:   viper.GetInt(videoCacheSize.flagKey),
		PlaylistLimit:    viper.GetInt(playlistLimit.flagKey),
		AutoCreateRooms:  viper.GetBool(autoCreateRooms.flagKey),
		Cluster:          viper.GetBool(cluster.flagKey),
		SweepInterval:    viper.GetDuration(sweepInterval.flagKey),
		PresenceInterval: viper.GetDuration(presenceInterval.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
