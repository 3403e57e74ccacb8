package engine

import (
	"math"
	"sort"
	"time"

	"github.com/integrityos/risk-engine/internal/models"
)

// TrendConfig tunes the depth trend fit.
type TrendConfig struct {
	PeriodDays   int     `yaml:"periodDays"`
	SlopeEpsilon float64 `yaml:"slopeEpsilon"`
}

// DefaultTrendConfig fits per-year trends.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{PeriodDays: 365, SlopeEpsilon: 0.01}
}

func (c TrendConfig) withDefaults() TrendConfig {
	def := DefaultTrendConfig()
	if c.PeriodDays <= 0 {
		c.PeriodDays = def.PeriodDays
	}
	if c.SlopeEpsilon < 0 || math.IsNaN(c.SlopeEpsilon) {
		c.SlopeEpsilon = def.SlopeEpsilon
	}
	return c
}

// DepthPoint is one (period, depth) sample of an object's defect history.
type DepthPoint struct {
	Period float64
	Depth  float64
	Date   time.Time
}

// TrendEstimator fits ordinary least squares lines over depth series.
type TrendEstimator struct {
	cfg TrendConfig
}

// NewTrendEstimator builds an estimator, filling unset values from DefaultTrendConfig.
func NewTrendEstimator(cfg TrendConfig) TrendEstimator {
	return TrendEstimator{cfg: cfg.withDefaults()}
}

// SeriesFromObservations keeps defect findings with a measured depth, ordered by
// date, and expresses each date in whole periods since the first finding.
func (e TrendEstimator) SeriesFromObservations(observations []models.Observation) []DepthPoint {
	findings := make([]models.Observation, 0, len(observations))
	for _, obs := range observations {
		if !obs.DefectFound || math.IsNaN(obs.DepthPercent) || math.IsInf(obs.DepthPercent, 0) {
			continue
		}
		findings = append(findings, obs)
	}
	if len(findings) == 0 {
		return nil
	}
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Date.Before(findings[j].Date)
	})

	period := time.Duration(e.cfg.PeriodDays) * 24 * time.Hour
	first := findings[0].Date
	series := make([]DepthPoint, len(findings))
	for i, obs := range findings {
		elapsed := obs.Date.Sub(first)
		series[i] = DepthPoint{
			Period: math.Floor(float64(elapsed) / float64(period)),
			Depth:  math.Max(0, obs.DepthPercent),
			Date:   obs.Date,
		}
	}
	return series
}

// Estimate fits depth = slope*period + intercept. It returns false for an empty
// series, which leaves the object unassessable.
func (e TrendEstimator) Estimate(objectID string, series []DepthPoint) (models.TrendEstimate, bool) {
	points := make([]DepthPoint, 0, len(series))
	for _, p := range series {
		if math.IsNaN(p.Depth) || math.IsInf(p.Depth, 0) || math.IsNaN(p.Period) || math.IsInf(p.Period, 0) {
			continue
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return models.TrendEstimate{}, false
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Period < points[j].Period
	})

	last := points[len(points)-1]
	est := models.TrendEstimate{
		ObjectID:         objectID,
		Points:           len(points),
		CurrentDepth:     last.Depth,
		LastPeriod:       last.Period,
		LastObservedDate: last.Date,
		Direction:        models.TrendStable,
	}

	n := float64(len(points))
	var meanT, meanD float64
	for _, p := range points {
		meanT += p.Period
		meanD += p.Depth
	}
	meanT /= n
	meanD /= n

	var sxx, sxy float64
	for _, p := range points {
		dt := p.Period - meanT
		sxx += dt * dt
		sxy += dt * (p.Depth - meanD)
	}

	// One point, or every point in the same period: no slope can be fitted, so
	// the latest measured depth carries forward.
	if len(points) == 1 || sxx == 0 {
		est.Intercept = last.Depth
		est.ProjectedDepth = clampDepth(last.Depth)
		return est, true
	}

	est.Slope = sxy / sxx
	est.Intercept = meanD - est.Slope*meanT
	est.ProjectedDepth = clampDepth(est.Slope*(last.Period+1) + est.Intercept)
	switch {
	case est.Slope > e.cfg.SlopeEpsilon:
		est.Direction = models.TrendIncreasing
	case est.Slope < -e.cfg.SlopeEpsilon:
		est.Direction = models.TrendDecreasing
	}
	return est, true
}

func clampDepth(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
