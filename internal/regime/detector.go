package regime

import (
	"math"
	"sync"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

type cacheKey struct {
	seriesID string
	index    int
}

// seriesState tracks how far the hysteresis state machine has run for
// one series
type seriesState struct {
	scores   *scoreSeries
	computed int // last index with a cached signal, -1 before start
	current  RegimeType
}

type scoreSeries struct {
	raw      indicators.Series
	smoothed indicators.Series
}

// Detector classifies each candle into bullish, bearish or neutral.
//
// The raw trend score blends the fast/slow EMA spread, the close relative
// to the slow EMA and the rate of change, each clamped to [-1, 1]. It is
// averaged over SmoothingPeriods and passed through a hysteresis state
// machine: a trend is entered above EnterThreshold and left only below
// ExitThreshold. States are evaluated sequentially from the first index,
// so the answer for an index never depends on call order or on candles
// after it.
type Detector struct {
	params     config.RegimeParams
	indicators *indicators.Cache

	mutex  sync.Mutex
	cache  map[cacheKey]RegimeSignal
	states map[string]*seriesState
	hits   uint64
	misses uint64
}

// NewDetector creates a detector. cache may be shared with other run
// components; nil computes indicators without caching.
func NewDetector(params config.RegimeParams, cache *indicators.Cache) *Detector {
	return &Detector{
		params:     params,
		indicators: cache,
		cache:      make(map[cacheKey]RegimeSignal),
		states:     make(map[string]*seriesState),
	}
}

// Params returns the detector configuration
func (d *Detector) Params() config.RegimeParams {
	return d.params
}

// Detect returns the regime at index, consulting candles up to index only
func (d *Detector) Detect(series *types.Series, index int) (RegimeSignal, error) {
	if series == nil || index < 0 || index >= series.Len() {
		return RegimeSignal{}, simerrors.NewDataError("regime", "detect", "index out of range").
			WithContext("index", index).
			WithContext("length", series.Len())
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	key := cacheKey{seriesID: series.ID, index: index}
	if sig, ok := d.cache[key]; ok {
		d.hits++
		return sig, nil
	}
	d.misses++

	state, err := d.stateFor(series)
	if err != nil {
		return RegimeSignal{}, err
	}

	var sig RegimeSignal
	for i := state.computed + 1; i <= index; i++ {
		sig = d.step(state, i)
		d.cache[cacheKey{seriesID: series.ID, index: i}] = sig
		state.computed = i
	}
	return sig, nil
}

func (d *Detector) stateFor(series *types.Series) (*seriesState, error) {
	if state, ok := d.states[series.ID]; ok {
		return state, nil
	}
	scores, err := d.computeScores(series)
	if err != nil {
		return nil, simerrors.NewComputationError("regime", "scores", err)
	}
	state := &seriesState{scores: scores, computed: -1, current: RegimeNeutral}
	d.states[series.ID] = state
	return state, nil
}

func (d *Detector) computeScores(series *types.Series) (*scoreSeries, error) {
	p := d.params
	fast, err := d.indicators.EMA(series, p.FastPeriod)
	if err != nil {
		return nil, err
	}
	slow, err := d.indicators.EMA(series, p.SlowPeriod)
	if err != nil {
		return nil, err
	}
	roc, err := d.indicators.ROC(series, p.MomentumPeriod)
	if err != nil {
		return nil, err
	}

	raw := make(indicators.Series, series.Len())
	for i := range raw {
		raw[i] = math.NaN()
		f, okF := fast.At(i)
		s, okS := slow.At(i)
		m, okM := roc.At(i)
		if !okF || !okS || !okM || s == 0 {
			continue
		}
		close := series.Candles[i].Close
		raw[i] = p.TrendWeight*Clamp((f-s)/s/p.MAScale) +
			p.PriceWeight*Clamp((close-s)/s/p.PriceScale) +
			p.MomentumWeight*Clamp(m/p.MomentumScale)
	}

	smoothed, err := indicators.SMA(raw, p.SmoothingPeriods)
	if err != nil {
		return nil, err
	}
	return &scoreSeries{raw: raw, smoothed: smoothed}, nil
}

// step advances the hysteresis state machine to index i
func (d *Detector) step(state *seriesState, i int) RegimeSignal {
	score, ok := state.scores.smoothed.At(i)
	if !ok {
		return NeutralSignal
	}
	raw, _ := state.scores.raw.At(i)

	p := d.params
	next := state.current
	switch state.current {
	case RegimeNeutral:
		if score > p.EnterThreshold {
			next = RegimeBullish
		} else if score < -p.EnterThreshold {
			next = RegimeBearish
		}
	case RegimeBullish:
		if score < -p.EnterThreshold {
			next = RegimeBearish
		} else if score < p.ExitThreshold {
			next = RegimeNeutral
		}
	case RegimeBearish:
		if score > p.EnterThreshold {
			next = RegimeBullish
		} else if score > -p.ExitThreshold {
			next = RegimeNeutral
		}
	}
	state.current = next

	return RegimeSignal{
		Regime:     next,
		Confidence: d.confidence(next, score),
		Score:      score,
		RawScore:   raw,
		Ready:      true,
	}
}

func (d *Detector) confidence(regime RegimeType, score float64) float64 {
	if regime == RegimeNeutral {
		return 1 - Clamp01(math.Abs(score)/d.params.EnterThreshold)
	}
	return Clamp01(math.Abs(score) / d.params.ConfidenceScale)
}

// Invalidate forgets every cached index of one series
func (d *Detector) Invalidate(seriesID string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for k := range d.cache {
		if k.seriesID == seriesID {
			delete(d.cache, k)
		}
	}
	delete(d.states, seriesID)
}

// Reset clears every cached classification and the hysteresis state
func (d *Detector) Reset() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.cache = make(map[cacheKey]RegimeSignal)
	d.states = make(map[string]*seriesState)
	d.hits = 0
	d.misses = 0
}

// Stats returns cache hit/miss counters
func (d *Detector) Stats() DetectorStats {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return DetectorStats{Hits: d.hits, Misses: d.misses, Entries: len(d.cache)}
}

// Clamp limits v to [-1, 1]
func Clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Clamp01 limits v to [0, 1]
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
