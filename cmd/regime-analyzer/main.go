package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ducminhle1904/regime-backtester/cmd/common"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Point is the classification of one candle
type Point struct {
	Index      int               `json:"index"`
	Timestamp  int64             `json:"timestamp"`
	Price      float64           `json:"price"`
	Regime     regime.RegimeType `json:"regime"`
	Confidence float64           `json:"confidence"`
	Score      float64           `json:"score"`
	Ready      bool              `json:"ready"`
}

// Segment is a run of consecutive candles in one regime
type Segment struct {
	Regime        regime.RegimeType `json:"regime"`
	From          int               `json:"from"`
	To            int               `json:"to"` // inclusive
	StartPrice    float64           `json:"start_price"`
	EndPrice      float64           `json:"end_price"`
	AvgConfidence float64           `json:"avg_confidence"`
}

// Len returns the number of candles in the segment
func (s Segment) Len() int { return s.To - s.From + 1 }

// ChangePct is the price move across the segment
func (s Segment) ChangePct() float64 {
	if s.StartPrice == 0 {
		return 0
	}
	return (s.EndPrice - s.StartPrice) / s.StartPrice * 100
}

// Analysis summarizes the regime timeline of a series
type Analysis struct {
	Points            []Point                   `json:"points,omitempty"`
	Segments          []Segment                 `json:"segments"`
	Distribution      map[regime.RegimeType]int `json:"distribution"`
	Transitions       int                       `json:"transitions"`
	AverageConfidence float64                   `json:"average_confidence"`
	WarmupCandles     int                       `json:"warmup_candles"` // candles before the detector was ready
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "regime-analyzer: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("regime-analyzer", flag.ExitOnError)
	commonFlags := common.RegisterCommonFlags(fs)
	dataFlags := common.RegisterDataFlags(fs)
	output := fs.String("output", "", "Write the full timeline as JSON to this file")
	maxSegments := fs.Int("segments", 20, "Most recent segments to print (0 prints all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *commonFlags.Version {
		common.PrintVersion("regime-analyzer")
		return nil
	}

	log, cfg, err := commonFlags.Setup("regime-analyzer")
	if err != nil {
		return err
	}
	defer log.Close()

	in, err := dataFlags.Load(log.Logger)
	if err != nil {
		return err
	}

	detector := regime.NewDetector(cfg.Regime, indicators.NewCache())
	analysis, err := analyze(detector, types.NewSeries(in.Candles))
	if err != nil {
		return err
	}
	log.Info().
		Int("candles", len(analysis.Points)).
		Int("segments", len(analysis.Segments)).
		Int("transitions", analysis.Transitions).
		Msg("regime analysis complete")

	printAnalysis(out, analysis, *maxSegments)

	if *output != "" {
		if err := writeJSON(*output, analysis); err != nil {
			return err
		}
		log.Info().Str("path", *output).Msg("timeline saved")
	}
	return nil
}

// analyze classifies every candle in order and folds the result into
// segments. Transitions count changes between ready signals only.
func analyze(detector *regime.Detector, series *types.Series) (*Analysis, error) {
	a := &Analysis{Distribution: make(map[regime.RegimeType]int)}
	var confidence float64
	var ready int
	var last *Segment
	var segConfidence float64

	for i, c := range series.Candles {
		sig, err := detector.Detect(series, i)
		if err != nil {
			return nil, err
		}
		a.Points = append(a.Points, Point{
			Index:      i,
			Timestamp:  c.Timestamp,
			Price:      c.Close,
			Regime:     sig.Regime,
			Confidence: sig.Confidence,
			Score:      sig.Score,
			Ready:      sig.Ready,
		})
		if !sig.Ready {
			a.WarmupCandles++
			continue
		}

		ready++
		confidence += sig.Confidence
		a.Distribution[sig.Regime]++

		if last != nil && last.Regime == sig.Regime && last.To == i-1 {
			last.To = i
			last.EndPrice = c.Close
			segConfidence += sig.Confidence
			continue
		}
		if last != nil {
			last.AvgConfidence = segConfidence / float64(last.Len())
			if last.Regime != sig.Regime {
				a.Transitions++
			}
		}
		a.Segments = append(a.Segments, Segment{Regime: sig.Regime, From: i, To: i, StartPrice: c.Close, EndPrice: c.Close})
		last = &a.Segments[len(a.Segments)-1]
		segConfidence = sig.Confidence
	}
	if last != nil {
		last.AvgConfidence = segConfidence / float64(last.Len())
	}
	if ready > 0 {
		a.AverageConfidence = confidence / float64(ready)
	}
	return a, nil
}

func printAnalysis(out io.Writer, a *Analysis, maxSegments int) {
	total := 0
	for _, n := range a.Distribution {
		total += n
	}

	dist := table.NewWriter()
	dist.SetOutputMirror(out)
	dist.SetTitle("REGIME DISTRIBUTION")
	dist.SetStyle(table.StyleRounded)
	dist.AppendHeader(table.Row{"Regime", "Candles", "Share"})
	for _, r := range []regime.RegimeType{regime.RegimeBullish, regime.RegimeNeutral, regime.RegimeBearish} {
		share := 0.0
		if total > 0 {
			share = float64(a.Distribution[r]) / float64(total) * 100
		}
		dist.AppendRow(table.Row{r, a.Distribution[r], fmt.Sprintf("%.1f%%", share)})
	}
	dist.AppendFooter(table.Row{"Transitions", a.Transitions, fmt.Sprintf("avg conf %.2f", a.AverageConfidence)})
	dist.Render()

	segments := a.Segments
	if maxSegments > 0 && len(segments) > maxSegments {
		segments = segments[len(segments)-maxSegments:]
	}
	seg := table.NewWriter()
	seg.SetOutputMirror(out)
	seg.SetTitle("REGIME TIMELINE")
	seg.SetStyle(table.StyleRounded)
	seg.AppendHeader(table.Row{"Regime", "From", "To", "Candles", "Change", "Avg Conf"})
	for _, s := range segments {
		seg.AppendRow(table.Row{
			s.Regime,
			types.PriceCandle{Timestamp: a.Points[s.From].Timestamp}.Time().Format("2006-01-02 15:04"),
			types.PriceCandle{Timestamp: a.Points[s.To].Timestamp}.Time().Format("2006-01-02 15:04"),
			s.Len(),
			fmt.Sprintf("%.2f%%", s.ChangePct()),
			fmt.Sprintf("%.2f", s.AvgConfidence),
		})
	}
	seg.Render()
}

func writeJSON(path string, a *Analysis) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
