package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/correlation"
	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// RunParams are the run inputs shared by single and batch requests
type RunParams struct {
	Candles        []types.PriceCandle `json:"candles"`
	Secondary      []types.PriceCandle `json:"secondary,omitempty"` // correlated asset on the same timestamps
	From           time.Time           `json:"from,omitempty"`
	To             time.Time           `json:"to,omitempty"`
	AllowSynthetic bool                `json:"allow_synthetic,omitempty"`
	TimeoutSeconds int                 `json:"timeout_seconds,omitempty"`
	FailFast       bool                `json:"fail_fast,omitempty"`
}

// BacktestRequest runs one config. Config fields override the defaults;
// an absent config runs the defaults.
type BacktestRequest struct {
	RunParams
	Config json.RawMessage `json:"config,omitempty"`
}

// BacktestResponse carries one run's result
type BacktestResponse struct {
	Result    *backtest.BacktestResult `json:"result"`
	ElapsedMs int64                    `json:"elapsed_ms"`
}

// BatchRequest runs many configs against one candle series
type BatchRequest struct {
	RunParams
	Configs []json.RawMessage `json:"configs"`
}

// BatchItem is one config's outcome, in request order
type BatchItem struct {
	ID         string                   `json:"id"`
	Seq        int                      `json:"seq"`
	Result     *backtest.BacktestResult `json:"result,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Category   string                   `json:"category,omitempty"`
	DurationMs int64                    `json:"duration_ms"`
}

// BatchResponse carries every item of a batch
type BatchResponse struct {
	Results   []BatchItem `json:"results"`
	Failed    int         `json:"failed"`
	ElapsedMs int64       `json:"elapsed_ms"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	cfg, err := decodeConfig(req.Config)
	if err != nil {
		s.fail(c, err)
		return
	}
	runOpts, err := s.runOptions(req.RunParams)
	if err != nil {
		s.fail(c, err)
		return
	}
	engine, err := backtest.NewEngine(cfg, s.engineOptions(req.FailFast)...)
	if err != nil {
		s.fail(c, err)
		return
	}

	started := time.Now()
	res, err := engine.Run(c.Request.Context(), req.Candles, runOpts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BacktestResponse{Result: res, ElapsedMs: time.Since(started).Milliseconds()})
}

func (s *Server) handleBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if len(req.Configs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "at least one config is required"})
		return
	}
	if len(req.Configs) > s.opts.MaxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("batch of %d exceeds the limit of %d configs", len(req.Configs), s.opts.MaxBatch),
		})
		return
	}

	runOpts, err := s.runOptions(req.RunParams)
	if err != nil {
		s.fail(c, err)
		return
	}

	// Configs that fail to decode are run as nil so the engine reports
	// them as configuration errors in their own slot.
	configs := make([]*config.StrategyConfig, len(req.Configs))
	decodeErrs := make([]error, len(req.Configs))
	for i, raw := range req.Configs {
		configs[i], decodeErrs[i] = decodeConfig(raw)
	}

	started := time.Now()
	bp := backtest.NewBatchProcessor(s.opts.Workers, s.opts.MaxBatch, s.engineOptions(req.FailFast)...)
	results, err := bp.ProcessBatch(c.Request.Context(), req.Candles, configs, runOpts)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := BatchResponse{Results: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{ID: r.ID, Seq: r.Seq, Result: r.Result, DurationMs: r.Duration.Milliseconds()}
		jobErr := r.Error
		if decodeErrs[i] != nil {
			jobErr = decodeErrs[i]
		}
		if jobErr != nil {
			item.Result = nil
			item.Error = jobErr.Error()
			item.Category = string(simerrors.CategoryOf(jobErr))
			resp.Failed++
		}
		resp.Results[i] = item
	}
	resp.ElapsedMs = time.Since(started).Milliseconds()
	c.JSON(http.StatusOK, resp)
}

// runOptions validates request-level inputs and builds the correlation
// overlay when a secondary series is supplied
func (s *Server) runOptions(p RunParams) (backtest.RunOptions, error) {
	opts := backtest.RunOptions{
		From:           p.From,
		To:             p.To,
		AllowSynthetic: p.AllowSynthetic,
		Timeout:        time.Duration(p.TimeoutSeconds) * time.Second,
	}
	if len(p.Candles) == 0 {
		return opts, simerrors.NewDataError("api", "request", "no candles supplied")
	}
	if len(p.Candles) > s.opts.MaxCandles {
		return opts, simerrors.NewDataError("api", "request",
			fmt.Sprintf("%d candles exceed the limit of %d", len(p.Candles), s.opts.MaxCandles))
	}
	if len(p.Secondary) > 0 {
		adj, err := correlation.Build(types.NewSeries(p.Candles), types.NewSeries(p.Secondary), correlation.DefaultParams())
		if err != nil {
			return opts, err
		}
		opts.Correlation = adj
	}
	return opts, nil
}

func decodeConfig(raw json.RawMessage) (*config.StrategyConfig, error) {
	cfg := config.DefaultStrategyConfig()
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := config.Decode(raw, ".json", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	cat := simerrors.CategoryOf(err)
	status := http.StatusInternalServerError
	switch cat {
	case simerrors.ErrorCategoryConfiguration, simerrors.ErrorCategoryData:
		status = http.StatusBadRequest
	case simerrors.ErrorCategoryTimeout:
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Category: string(cat)})
}
