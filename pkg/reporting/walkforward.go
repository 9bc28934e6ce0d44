package reporting

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ducminhle1904/regime-backtester/pkg/validation"
)

// OutputWalkForward prints one row per fold and the robustness summary
func (r *DefaultConsoleReporter) OutputWalkForward(s *validation.WalkForwardSummary) {
	folds := r.newTable("WALK-FORWARD FOLDS")
	folds.AppendHeader(table.Row{"Fold", "Train", "Test", "Train Return", "Test Return", "Train DD", "Test DD"})
	for _, f := range s.Results {
		folds.AppendRow(table.Row{
			f.Fold,
			f.TrainStart.Format("2006-01-02") + " → " + f.TrainEnd.Format("2006-01-02"),
			f.TestStart.Format("2006-01-02") + " → " + f.TestEnd.Format("2006-01-02"),
			pct(f.Train.Metrics.TotalReturnPct), pct(f.Test.Metrics.TotalReturnPct),
			pct(f.Train.Metrics.MaxDrawdownPct), pct(f.Test.Metrics.MaxDrawdownPct),
		})
	}
	folds.Render()

	robust := "❌ NO"
	if s.IsRobust {
		robust = "✅ YES"
	}
	summary := r.newTable("WALK-FORWARD SUMMARY")
	summary.AppendRows([]table.Row{
		{"Avg Train Return", pct(s.AverageTrainReturn)},
		{"Avg Test Return", pct(s.AverageTestReturn)},
		{"Train Return StdDev", pct(s.TrainReturnStdDev)},
		{"Test Return StdDev", pct(s.TestReturnStdDev)},
		{"Avg Train Drawdown", pct(s.AverageTrainDrawdown)},
		{"Avg Test Drawdown", pct(s.AverageTestDrawdown)},
		{"Return Degradation", pct(s.ReturnDegradation)},
		{"Robust", robust},
		{"Overfitting Risk", s.OverfittingRisk},
	})
	summary.Render()
}
