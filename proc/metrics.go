package proc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "jukebox"

var (
	metricSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "voice_sessions_active",
		Help:      "Number of guilds with a live playback session",
	})
	metricEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "voice_items_enqueued_total",
		Help:      "Total number of resolved items appended to a queue",
	})
	metricTracksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "voice_tracks_started_total",
		Help:      "Total number of tracks that started streaming",
	})
	metricTracksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "voice_tracks_failed_total",
		Help:      "Total number of tracks that ended with a transport error",
	})
	metricSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "voice_skips_total",
		Help:      "Total number of skipped tracks",
	})
	metricRetirements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "voice_retirements_total",
		Help:      "Total number of player retirements by reason",
	}, []string{"reason"})
)
