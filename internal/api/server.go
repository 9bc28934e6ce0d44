package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/monitoring"
)

const (
	// DefaultMaxBatch caps configs per batch request
	DefaultMaxBatch = 256
	// DefaultMaxCandles caps candles per request
	DefaultMaxCandles = 500_000
	// DefaultMaxBodyBytes caps the request body
	DefaultMaxBodyBytes = 64 << 20
)

var _ backtest.Recorder = (*monitoring.Metrics)(nil)

// Options configures a Server
type Options struct {
	Logger       zerolog.Logger
	Registry     *prometheus.Registry // nil creates a private registry
	Workers      int                  // batch workers, <= 0 uses every CPU
	MaxBatch     int
	MaxCandles   int
	MaxBodyBytes int64
	FailureLimit int // consecutive failed runs before /healthz reports degraded
}

// Server exposes the backtest engine over HTTP for external optimizers
type Server struct {
	opts     Options
	logger   zerolog.Logger
	registry *prometheus.Registry
	health   *monitoring.HealthChecker
	metrics  *monitoring.Metrics
}

// NewServer wires monitoring into a new API server
func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.MaxCandles <= 0 {
		opts.MaxCandles = DefaultMaxCandles
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.FailureLimit <= 0 {
		opts.FailureLimit = monitoring.DefaultFailureLimit
	}

	health := monitoring.NewHealthChecker(opts.FailureLimit)
	return &Server{
		opts:     opts,
		logger:   opts.Logger,
		registry: opts.Registry,
		health:   health,
		metrics:  monitoring.NewMetrics(opts.Registry, health),
	}
}

// Health exposes the health checker
func (s *Server) Health() *monitoring.HealthChecker {
	return s.health
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.bodyLimit())

	r.GET("/healthz", gin.WrapH(s.health))
	r.GET("/metrics", gin.WrapH(monitoring.Handler(s.registry)))

	v1 := r.Group("/v1")
	v1.POST("/backtests", s.handleBacktest)
	v1.POST("/backtests/batch", s.handleBatch)
	return r
}

// HTTPServer wraps the router in an http.Server with sane timeouts
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) engineOptions(failFast bool) []backtest.Option {
	opts := []backtest.Option{
		backtest.WithLogger(s.logger),
		backtest.WithRecorder(s.metrics),
	}
	if failFast {
		opts = append(opts, backtest.WithFailurePolicy(backtest.FailurePolicyFailFast))
	}
	return opts
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes)
		c.Next()
	}
}
