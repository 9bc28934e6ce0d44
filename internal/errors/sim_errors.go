package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the kind of failure a simulation can hit
type ErrorCategory string

const (
	// Fail-fast categories, surfaced before any run state exists
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryData          ErrorCategory = "DATA"

	// Run-level abort
	ErrorCategoryTimeout ErrorCategory = "TIMEOUT"

	// Per-candle failure, recoverable by substituting a neutral record
	ErrorCategoryComputation ErrorCategory = "COMPUTATION"
)

// SimError represents a categorized error with context
type SimError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *SimError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (e *SimError) Unwrap() error {
	return e.Underlying
}

// IsFatal reports whether the error must abort the run
func (e *SimError) IsFatal() bool {
	return e.Category != ErrorCategoryComputation
}

// NewSimError creates a new categorized error
func NewSimError(category ErrorCategory, component, operation, message string) *SimError {
	return &SimError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with simulation context
func WrapError(err error, category ErrorCategory, component, operation string) *SimError {
	if err == nil {
		return nil
	}

	return &SimError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *SimError) WithContext(key string, value interface{}) *SimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewConfigurationError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryConfiguration, component, operation, message)
}

func NewDataError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryData, component, operation, message)
}

func NewComputationError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryComputation, component, operation)
}

func NewTimeoutError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryTimeout, component, operation)
}

// CategoryOf returns the category of err, or "" when err carries none
func CategoryOf(err error) ErrorCategory {
	var simErr *SimError
	if stderrors.As(err, &simErr) {
		return simErr.Category
	}
	return ""
}

func IsConfigurationError(err error) bool { return CategoryOf(err) == ErrorCategoryConfiguration }
func IsDataError(err error) bool          { return CategoryOf(err) == ErrorCategoryData }
func IsComputationError(err error) bool   { return CategoryOf(err) == ErrorCategoryComputation }
func IsTimeoutError(err error) bool       { return CategoryOf(err) == ErrorCategoryTimeout }

// Error recovery strategies
type RecoveryAction string

const (
	RecoveryActionSkip RecoveryAction = "SKIP"
	RecoveryActionStop RecoveryAction = "STOP"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *SimError) GetRecoveryAction() RecoveryAction {
	switch e.Category {
	case ErrorCategoryComputation:
		return RecoveryActionSkip
	default:
		return RecoveryActionStop
	}
}

// ErrorStats tracks per-run error statistics
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*SimError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*SimError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *SimError) {
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	if es.MaxRecentErrors <= 0 {
		return
	}
	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of recorded errors in a category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}

// Messages returns the recent error strings, oldest first
func (es *ErrorStats) Messages() []string {
	out := make([]string, 0, len(es.RecentErrors))
	for _, err := range es.RecentErrors {
		out = append(out, err.Error())
	}
	return out
}
