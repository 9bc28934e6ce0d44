package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// WorkerPool runs independent backtests in parallel. Each job gets its own
// engine and SimulationContext.
type WorkerPool struct {
	workerCount int
	engineOpts  []Option
	jobQueue    chan BacktestJob
	resultQueue chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	stopOnce    sync.Once
}

// BacktestJob is a single backtest task
type BacktestJob struct {
	ID      string
	Seq     int // submission order
	Config  *config.StrategyConfig
	Candles []types.PriceCandle
	Options RunOptions
}

// JobResult is the outcome of one job
type JobResult struct {
	ID       string          `json:"id"`
	Seq      int             `json:"seq"`
	Result   *BacktestResult `json:"result,omitempty"`
	Duration time.Duration   `json:"duration"`
	Error    error           `json:"-"`
}

// NewWorkerPool creates a pool. Engine options apply to every job.
func NewWorkerPool(ctx context.Context, workerCount int, jobBufferSize int, engineOpts ...Option) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobBufferSize < 0 {
		jobBufferSize = 0
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		engineOpts:  engineOpts,
		jobQueue:    make(chan BacktestJob, jobBufferSize),
		resultQueue: make(chan JobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop closes the job queue, waits for in-flight jobs and closes results
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
	})
}

// SubmitJob queues a job
func (wp *WorkerPool) SubmitJob(job BacktestJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel of completed jobs. It is closed by Stop, so
// callers either buffer it for every job or read it while Stop runs.
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.resultQueue
}

// worker delivers a result for every job it takes. After cancellation the
// remaining jobs still drain; Run returns at once with the context error.
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.resultQueue <- wp.processJob(job)
	}
}

func (wp *WorkerPool) processJob(job BacktestJob) JobResult {
	started := time.Now()
	result := JobResult{ID: job.ID, Seq: job.Seq}

	engine, err := NewEngine(job.Config, wp.engineOpts...)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(started)
		return result
	}

	result.Result, result.Error = engine.Run(wp.ctx, job.Candles, job.Options)
	result.Duration = time.Since(started)
	return result
}

// BatchProcessor evaluates many configurations against one candle series
type BatchProcessor struct {
	workerCount int
	maxJobs     int
	engineOpts  []Option
	cache       *indicators.Cache
	onProgress  func(done, total int)
}

// NewBatchProcessor creates a batch processor. maxJobs <= 0 means no limit.
func NewBatchProcessor(workerCount, maxJobs int, engineOpts ...Option) *BatchProcessor {
	return &BatchProcessor{
		workerCount: workerCount,
		maxJobs:     maxJobs,
		engineOpts:  engineOpts,
		cache:       indicators.NewCache(),
	}
}

// OnProgress sets a callback invoked after each completed job
func (bp *BatchProcessor) OnProgress(fn func(done, total int)) {
	bp.onProgress = fn
}

// Cache exposes the indicator cache shared by the batch
func (bp *BatchProcessor) Cache() *indicators.Cache {
	return bp.cache
}

// ProcessBatch runs every config against candles and returns results in
// submission order. The shared indicator cache is reset first so nothing
// from an earlier series leaks into this batch.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, candles []types.PriceCandle, configs []*config.StrategyConfig, opts RunOptions) ([]JobResult, error) {
	if len(configs) == 0 {
		return nil, nil
	}
	if bp.maxJobs > 0 && len(configs) > bp.maxJobs {
		return nil, fmt.Errorf("batch of %d exceeds the limit of %d jobs", len(configs), bp.maxJobs)
	}

	bp.cache.Reset()
	engineOpts := append(append([]Option(nil), bp.engineOpts...), WithIndicatorCache(bp.cache))
	pool := NewWorkerPool(ctx, bp.workerCount, len(configs), engineOpts...)
	pool.Start()

	submitted := 0
	var submitErr error
	for i, cfg := range configs {
		job := BacktestJob{Seq: i, Config: cfg, Candles: candles, Options: opts}
		if err := pool.SubmitJob(job); err != nil {
			submitErr = err
			break
		}
		submitted++
	}

	go pool.Stop()

	tracker := NewProgressTracker(submitted)
	results := make([]JobResult, submitted)
	for r := range pool.Results() {
		results[r.Seq] = r
		tracker.Increment()
		if bp.onProgress != nil {
			done, total, _, _ := tracker.GetProgress()
			bp.onProgress(done, total)
		}
	}

	if submitErr != nil {
		return results, fmt.Errorf("batch interrupted after %d jobs: %w", submitted, submitErr)
	}
	return results, nil
}

// ProgressTracker tracks the progress of batch processing
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment increments the completion count
func (pt *ProgressTracker) Increment() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
}

// GetProgress returns completed, total, percent done and elapsed time
func (pt *ProgressTracker) GetProgress() (int, int, float64, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	elapsed := time.Since(pt.startTime)
	progress := 0.0
	if pt.total > 0 {
		progress = float64(pt.completed) / float64(pt.total) * 100
	}

	return pt.completed, pt.total, progress, elapsed
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}
