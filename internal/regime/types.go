package regime

import "fmt"

// RegimeType represents the market trend state
type RegimeType int

const (
	RegimeNeutral RegimeType = iota
	RegimeBullish
	RegimeBearish
)

func (r RegimeType) String() string {
	switch r {
	case RegimeNeutral:
		return "neutral"
	case RegimeBullish:
		return "bullish"
	case RegimeBearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// MarshalText encodes the regime by name
func (r RegimeType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a regime name
func (r *RegimeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "neutral":
		*r = RegimeNeutral
	case "bullish":
		*r = RegimeBullish
	case "bearish":
		*r = RegimeBearish
	default:
		return fmt.Errorf("unknown regime %q", text)
	}
	return nil
}

// RegimeSignal is the classification of one candle index
type RegimeSignal struct {
	Regime     RegimeType `json:"regime"`
	Confidence float64    `json:"confidence"` // 0.0 to 1.0
	Score      float64    `json:"score"`      // smoothed trend score
	RawScore   float64    `json:"raw_score"`
	Ready      bool       `json:"ready"` // false while indicators are warming up
}

// NeutralSignal is returned before the detector has enough history
var NeutralSignal = RegimeSignal{Regime: RegimeNeutral}

// DetectorStats reports cache usage
type DetectorStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}
