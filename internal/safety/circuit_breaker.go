package safety

import (
	"sync"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for an entry circuit breaker.
// Time is measured in candles, not wall clock, so replays are deterministic.
type CircuitBreakerConfig struct {
	Lookback         int     // Closed trades inspected
	MinWinRate       float64 // Trip when the rolling win rate falls below this
	CooldownPeriods  int     // Candles to stay open
	SuccessThreshold int     // Winning trades to close from half-open
}

// CircuitBreaker pauses new entries after a losing streak
type CircuitBreaker struct {
	config        CircuitBreakerConfig
	state         CircuitBreakerState
	outcomes      []bool // rolling window, oldest first
	successes     int
	trips         int
	nextAttempt   int // candle index at which an open breaker goes half-open
	mutex         sync.Mutex
	name          string
	onStateChange func(from, to CircuitBreakerState, index int)
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.Lookback <= 0 {
		config.Lookback = 10
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}

	return &CircuitBreaker{
		config:   config,
		state:    StateClosed,
		outcomes: make([]bool, 0, config.Lookback),
		name:     name,
	}
}

// SetStateChangeCallback sets a callback invoked synchronously on every transition
func (cb *CircuitBreaker) SetStateChangeCallback(callback func(from, to CircuitBreakerState, index int)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = callback
}

// Allow reports whether a new entry may open at candle index
func (cb *CircuitBreaker) Allow(index int) bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if index >= cb.nextAttempt {
			cb.changeState(StateHalfOpen, index)
			cb.successes = 0
			return true
		}
		return false
	default:
		return false
	}
}

// RecordOutcome records a closed trade at candle index
func (cb *CircuitBreaker) RecordOutcome(index int, win bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.outcomes = append(cb.outcomes, win)
	if len(cb.outcomes) > cb.config.Lookback {
		cb.outcomes = cb.outcomes[1:]
	}

	switch cb.state {
	case StateHalfOpen:
		if !win {
			cb.toOpen(index)
			return
		}
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.toClosed(index)
		}
	case StateClosed:
		if len(cb.outcomes) >= cb.config.Lookback && cb.winRate() < cb.config.MinWinRate {
			cb.toOpen(index)
		}
	case StateOpen:
		// exits of positions opened before the trip do not extend the pause
	}
}

func (cb *CircuitBreaker) winRate() float64 {
	if len(cb.outcomes) == 0 {
		return 1
	}
	wins := 0
	for _, w := range cb.outcomes {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(cb.outcomes))
}

// toClosed transitions to closed state and starts a fresh window
func (cb *CircuitBreaker) toClosed(index int) {
	cb.changeState(StateClosed, index)
	cb.outcomes = cb.outcomes[:0]
	cb.successes = 0
}

// toOpen transitions to open state
func (cb *CircuitBreaker) toOpen(index int) {
	cb.changeState(StateOpen, index)
	cb.nextAttempt = index + cb.config.CooldownPeriods
	cb.successes = 0
	cb.trips++
}

func (cb *CircuitBreaker) changeState(newState CircuitBreakerState, index int) {
	oldState := cb.state
	cb.state = newState

	if cb.onStateChange != nil && oldState != newState {
		cb.onStateChange(oldState, newState, index)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// CircuitBreakerStats holds statistics about a circuit breaker
type CircuitBreakerStats struct {
	Name        string              `json:"name"`
	State       CircuitBreakerState `json:"state"`
	WinRate     float64             `json:"win_rate"`
	Trips       int                 `json:"trips"`
	NextAttempt int                 `json:"next_attempt"`
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return CircuitBreakerStats{
		Name:        cb.name,
		State:       cb.state,
		WinRate:     cb.winRate(),
		Trips:       cb.trips,
		NextAttempt: cb.nextAttempt,
	}
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = StateClosed
	cb.outcomes = cb.outcomes[:0]
	cb.successes = 0
	cb.trips = 0
	cb.nextAttempt = 0
}

// ForceOpen opens the breaker at candle index regardless of the window
func (cb *CircuitBreaker) ForceOpen(index int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.toOpen(index)
}
