package engine

import (
	"math"

	"github.com/integrityos/risk-engine/internal/models"
)

// BandConfig holds the lower probability bound of each risk band.
type BandConfig struct {
	Urgent   float64 `yaml:"urgent"`
	Elevated float64 `yaml:"elevated"`
	Moderate float64 `yaml:"moderate"`
}

// RiskConfig tunes the forward-looking failure probability.
type RiskConfig struct {
	HighSeverityDepth float64    `yaml:"highSeverityDepth"`
	TrendBonus        float64    `yaml:"trendBonus"`
	RepeatBonus       float64    `yaml:"repeatBonus"`
	RepeatCount       int        `yaml:"repeatCount"`
	RecentWindow      int        `yaml:"recentWindow"`
	Bands             BandConfig `yaml:"bands"`
}

// DefaultRiskConfig returns the calibrated forecasting constants.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		HighSeverityDepth: 50,
		TrendBonus:        0.1,
		RepeatBonus:       0.1,
		RepeatCount:       2,
		RecentWindow:      5,
		Bands:             BandConfig{Urgent: 0.8, Elevated: 0.6, Moderate: 0.3},
	}
}

func (c RiskConfig) withDefaults() RiskConfig {
	def := DefaultRiskConfig()
	if c.HighSeverityDepth <= 0 {
		c.HighSeverityDepth = def.HighSeverityDepth
	}
	if c.TrendBonus <= 0 {
		c.TrendBonus = def.TrendBonus
	}
	if c.RepeatBonus <= 0 {
		c.RepeatBonus = def.RepeatBonus
	}
	if c.RepeatCount <= 0 {
		c.RepeatCount = def.RepeatCount
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = def.RecentWindow
	}
	if c.Bands == (BandConfig{}) {
		c.Bands = def.Bands
	}
	return c
}

var bandMessages = map[models.RiskBand]string{
	models.RiskUrgent:   "urgent: high probability of a critical defect within one period",
	models.RiskElevated: "elevated risk: schedule an unplanned inspection",
	models.RiskModerate: "moderate risk: keep the object under regular monitoring",
	models.RiskLow:      "stable condition: routine inspection schedule",
}

const unassessableMessage = "no defect history: object cannot be assessed"

// BandMessage returns the default English wording for a band.
func BandMessage(band models.RiskBand) string {
	return bandMessages[band]
}

// Forecaster turns trends into bounded failure probabilities.
type Forecaster struct {
	cfg      RiskConfig
	critical func(models.Method) bool
}

// NewForecaster builds a Forecaster. critical reports the high-sensitivity methods;
// nil disables the repeated-finding bonus.
func NewForecaster(cfg RiskConfig, critical func(models.Method) bool) Forecaster {
	if critical == nil {
		critical = func(models.Method) bool { return false }
	}
	return Forecaster{cfg: cfg.withDefaults(), critical: critical}
}

// Forecast scores one object's trend. recent is the object's history ordered by date.
func (f Forecaster) Forecast(trend models.TrendEstimate, recent []models.Observation) models.RiskForecast {
	p := clamp01(trend.ProjectedDepth / f.cfg.HighSeverityDepth)
	switch trend.Direction {
	case models.TrendIncreasing:
		p += f.cfg.TrendBonus
	case models.TrendDecreasing:
		p -= f.cfg.TrendBonus
	}
	if f.repeatedFindings(recent) {
		p += f.cfg.RepeatBonus
	}
	p = clamp01(p)

	band := f.Band(p)
	t := trend
	return models.RiskForecast{
		ObjectID:    trend.ObjectID,
		Status:      models.ForecastOK,
		Probability: p,
		Band:        band,
		Trend:       &t,
		Message:     BandMessage(band),
	}
}

// Unassessable is the forecast of an object without any defect history.
func (f Forecaster) Unassessable(objectID string) models.RiskForecast {
	return models.RiskForecast{
		ObjectID: objectID,
		Status:   models.ForecastUnassessable,
		Band:     models.RiskLow,
		Message:  unassessableMessage,
	}
}

// Band maps a probability onto its category.
func (f Forecaster) Band(p float64) models.RiskBand {
	switch {
	case p >= f.cfg.Bands.Urgent:
		return models.RiskUrgent
	case p >= f.cfg.Bands.Elevated:
		return models.RiskElevated
	case p >= f.cfg.Bands.Moderate:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

func (f Forecaster) repeatedFindings(recent []models.Observation) bool {
	window := recent
	if len(window) > f.cfg.RecentWindow {
		window = window[len(window)-f.cfg.RecentWindow:]
	}
	hits := 0
	for _, obs := range window {
		if obs.DefectFound && f.critical(obs.Method) {
			hits++
		}
	}
	return hits >= f.cfg.RepeatCount
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
