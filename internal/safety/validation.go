package safety

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
	Index   int
}

func invalid(index int, code, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Message: fmt.Sprintf(format, args...), Code: code, Index: index}
}

// ValidatePrice validates a single price value
func ValidatePrice(price float64, index int, field string) ValidationResult {
	if math.IsNaN(price) {
		return invalid(index, "INVALID_PRICE_NAN", "candle %d: %s is NaN", index, field)
	}
	if math.IsInf(price, 0) {
		return invalid(index, "INVALID_PRICE_INF", "candle %d: %s is infinite", index, field)
	}
	if price <= 0 {
		return invalid(index, "INVALID_PRICE_NEGATIVE", "candle %d: %s %.8f must be positive", index, field, price)
	}
	return ValidationResult{Valid: true, Index: index}
}

// ValidateCandle checks prices and, unless allowSynthetic is set, the OHLC
// envelope low <= {open, close} <= high
func ValidateCandle(c types.PriceCandle, index int, allowSynthetic bool) ValidationResult {
	fields := []struct {
		name  string
		value float64
	}{
		{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close},
	}
	for _, f := range fields {
		if res := ValidatePrice(f.value, index, f.name); !res.Valid {
			return res
		}
	}
	if c.Volume < 0 || math.IsNaN(c.Volume) {
		return invalid(index, "INVALID_VOLUME", "candle %d: volume %.8f must not be negative", index, c.Volume)
	}
	if allowSynthetic {
		return ValidationResult{Valid: true, Index: index}
	}
	if c.Low > c.High {
		return invalid(index, "OHLC_INVERTED", "candle %d: low %.8f above high %.8f", index, c.Low, c.High)
	}
	if c.Open < c.Low || c.Open > c.High || c.Close < c.Low || c.Close > c.High {
		return invalid(index, "OHLC_ENVELOPE", "candle %d: open/close outside [low, high]", index)
	}
	return ValidationResult{Valid: true, Index: index}
}

// ValidateSeries checks every candle and strictly increasing timestamps.
// It returns the first failure found.
func ValidateSeries(candles []types.PriceCandle, allowSynthetic bool) ValidationResult {
	for i, c := range candles {
		if i > 0 && c.Timestamp <= candles[i-1].Timestamp {
			return invalid(i, "NON_CHRONOLOGICAL", "candle %d: timestamp %d not after %d", i, c.Timestamp, candles[i-1].Timestamp)
		}
		if res := ValidateCandle(c, i, allowSynthetic); !res.Valid {
			return res
		}
	}
	return ValidationResult{Valid: true}
}
