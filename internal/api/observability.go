package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

// Metrics with bounded cardinality: labels are crash causes and result
// kinds, never cycle names.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lightcycle_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	aliveCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightcycle_alive_cycles",
		Help: "Cycles still riding in the current match",
	})

	occupiedCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightcycle_occupied_cells",
		Help: "Trail cells set in the occupancy grid",
	})

	crashesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightcycle_crashes_total",
		Help: "Cycle crashes by cause",
	}, []string{"cause"}) // Bounded: "wall", "trail", "head_on"

	shieldSavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lightcycle_shield_saves_total",
		Help: "Collisions survived because of an active shield",
	})

	pickupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lightcycle_shield_pickups_total",
		Help: "Shield pickups collected",
	})

	matchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightcycle_match_outcomes_total",
		Help: "Finished matches by result",
	}, []string{"result"}) // Bounded: "win", "tie"

	matchLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lightcycle_match_ticks",
		Help:    "Ticks played per finished match",
		Buckets: prometheus.ExponentialBuckets(50, 2, 10),
	})

	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Events accepted by the match event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket frames broadcast",
	}, []string{"format"})

	wsInputsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_inputs_total",
		Help: "Input messages accepted over WebSocket",
	})

	wsInputsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_inputs_dropped_total",
		Help: "Input messages dropped by the per-connection rate limit",
	})
)

// InstrumentEngine hooks the engine callbacks to the metrics.
// It replaces any callbacks already set.
func InstrumentEngine(engine *game.Engine) {
	engine.OnTick = func(rep game.TickReport, elapsed time.Duration) {
		RecordTick(elapsed)
		shieldSavesTotal.Add(float64(len(rep.Saves)))
		if snap := engine.GetSnapshot(); snap != nil {
			aliveCycles.Set(float64(snap.AliveCount))
			occupiedCells.Set(float64(snap.OccupiedCells))
		}
		if rep.Tick%60 == 0 {
			UpdateEventLogStats(engine.GetEventLogStats())
		}
	}
	engine.OnCrash = func(crash game.Crash, _ game.CycleSnapshot) {
		crashesTotal.WithLabelValues(string(crash.Cause)).Inc()
	}
	engine.OnPickup = func(game.CycleSnapshot) {
		pickupsTotal.Inc()
	}
	engine.OnMatchEnd = func(_ string, outcome game.Outcome, _ string) {
		result := "win"
		if outcome.Tie {
			result = "tie"
		}
		matchOutcomes.WithLabelValues(result).Inc()
		matchLength.Observe(float64(outcome.Tick))
	}
}

// NewDebugHandler builds the debug mux: pprof, /metrics and /health.
func NewDebugHandler(cfg config.ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server in the
// background. Returns nil when disabled.
// It binds to localhost unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg config.ObservabilityConfig) *http.Server {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLoopbackAddr(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost")
		cfg.ListenAddr = config.DefaultObservability().ListenAddr
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewDebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv
}

func isLoopbackAddr(addr string) bool {
	return strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:")
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency per chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		RecordRequest(r.Method, endpoint, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateEventLogStats mirrors the event log counters into gauges.
func UpdateEventLogStats(stats map[string]interface{}) {
	if v, ok := stats["total"].(uint64); ok {
		eventLogTotal.Set(float64(v))
	}
	if v, ok := stats["dropped"].(uint64); ok {
		eventLogDropped.Set(float64(v))
	}
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}
