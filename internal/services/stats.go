package services

import (
	"errors"
	"math"
)

// mean calculates the arithmetic mean of a series.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance calculates the population variance of a series.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return sumSq / float64(len(values))
}

// stddev calculates the sample standard deviation of a series.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// autocorr computes the autocorrelation of a series at the given lag.
func autocorr(values []float64, lag int) float64 {
	if lag < 0 || lag >= len(values) {
		return 0
	}
	n := len(values)
	m := mean(values)

	var c0, ck float64
	for i := 0; i < n; i++ {
		c0 += (values[i] - m) * (values[i] - m)
	}
	for i := 0; i < n-lag; i++ {
		ck += (values[i] - m) * (values[i+lag] - m)
	}
	if c0 == 0 {
		return 0
	}
	return ck / c0
}

// difference applies d-order differencing to a series.
func difference(values []float64, d int) []float64 {
	if d == 0 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values)-1)
	for i := 0; i < len(values)-1; i++ {
		out[i] = values[i+1] - values[i]
	}
	if d > 1 {
		return difference(out, d-1)
	}
	return out
}

// linearRegression fits y = intercept + slope*x over index positions and
// returns the fit together with its R-squared.
func linearRegression(values []float64) (slope, intercept, r2 float64) {
	n := float64(len(values))
	if n < 2 {
		return 0, 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, mean(values), 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	var ssTot, ssRes float64
	yMean := sumY / n
	for i, y := range values {
		pred := intercept + slope*float64(i)
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - yMean) * (y - yMean)
	}
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return slope, intercept, r2
}

// levinsonDurbin solves the Yule-Walker equations for AR coefficients from
// the autocorrelation sequence acf[0..p].
func levinsonDurbin(acf []float64, p int) ([]float64, error) {
	if p == 0 {
		return []float64{}, nil
	}

	phi := make([][]float64, p+1)
	for i := range phi {
		phi[i] = make([]float64, p+1)
	}

	v := acf[0]
	for k := 1; k <= p; k++ {
		num := acf[k]
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
		}

		if v == 0 {
			return nil, errors.New("numerical instability in Levinson-Durbin recursion")
		}
		phi[k][k] = num / v

		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}

		v = v * (1 - phi[k][k]*phi[k][k])
		if v < 0 {
			return nil, errors.New("negative innovation variance in Levinson-Durbin recursion")
		}
	}

	coeffs := make([]float64, p)
	for i := 0; i < p; i++ {
		coeffs[i] = phi[p][i+1]
	}
	return coeffs, nil
}

// residualACF1 returns the lag-1 autocorrelation of a residual series, the
// cheap whiteness check used by the fit diagnostics.
func residualACF1(residuals []float64) float64 {
	if len(residuals) < 3 {
		return 0
	}
	return autocorr(residuals, 1)
}
