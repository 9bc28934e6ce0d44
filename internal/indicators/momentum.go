package indicators

// RateOfChange computes (v[i] - v[i-period]) / v[i-period]
func RateOfChange(values []float64, period int) (Series, error) {
	if err := checkPeriod("ROC", period); err != nil {
		return nil, err
	}

	out := newSeries(len(values))
	for i := period; i < len(values); i++ {
		base := values[i-period]
		if base == 0 {
			continue
		}
		out[i] = (values[i] - base) / base
	}
	return out, nil
}
