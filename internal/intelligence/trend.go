package intelligence

// linearFit performs an ordinary least-squares fit of ys over xs and returns
// the slope, intercept and coefficient of determination. Callers guarantee
// len(xs) == len(ys) >= 2.
func linearFit(xs, ys []float64) (slope, intercept, r2 float64) {
	n := float64(len(xs))

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var ssXY, ssXX, ssYY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}
	if ssXX == 0 {
		return 0, meanY, 0
	}
	slope = ssXY / ssXX
	intercept = meanY - slope*meanX

	if ssYY == 0 {
		// A perfectly flat series is perfectly explained by the fit.
		return slope, intercept, 1
	}
	r2 = (ssXY * ssXY) / (ssXX * ssYY)
	return slope, intercept, r2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
