package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "synctube"

var (
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open websocket sessions",
		},
	)

	RoomsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_loaded",
			Help:      "Number of rooms held by the registry",
		},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Inbound websocket actions by result",
		},
		[]string{"action", "result"},
	)

	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Inbound websocket action handling time",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"action"},
	)

	BusEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_total",
			Help:      "Bus events by direction and type",
		},
		[]string{"direction", "type"},
	)

	VideoInfoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_info_lookups_total",
			Help:      "Video info cache lookups by result",
		},
		[]string{"result"},
	)

	VideosEnded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_ended_total",
			Help:      "Videos advanced by the ended-check sweep",
		},
	)
)
