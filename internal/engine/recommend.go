package engine

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/integrityos/risk-engine/internal/models"
)

// IntervalBand schedules objects whose probability is at least MinProbability.
type IntervalBand struct {
	MinProbability float64 `yaml:"minProbability"`
	Months         int     `yaml:"months"`
}

// RecommendConfig tunes inspection scheduling and method choice.
type RecommendConfig struct {
	Intervals        []IntervalBand      `yaml:"intervals"`
	DefaultMonths    int                 `yaml:"defaultMonths"`
	MethodPreference []string            `yaml:"methodPreference"`
	Applicability    map[string][]string `yaml:"applicability"`
}

// DefaultRecommendConfig returns the standard inspection schedule.
func DefaultRecommendConfig() RecommendConfig {
	return RecommendConfig{
		Intervals: []IntervalBand{
			{MinProbability: 0.8, Months: 3},
			{MinProbability: 0.6, Months: 6},
			{MinProbability: 0.3, Months: 12},
		},
		DefaultMonths: 24,
		MethodPreference: []string{
			string(models.MethodUltrasonic),
			string(models.MethodMagneticFlux),
			string(models.MethodRadiographic),
			string(models.MethodWallThickness),
			string(models.MethodTransverseFlux),
		},
	}
}

// ApplicabilityFile is the YAML root of a per-object-type method table.
type ApplicabilityFile struct {
	Applicability map[string][]string `yaml:"applicability"`
}

// LoadApplicability reads a method applicability table. A missing path or file yields nil.
func LoadApplicability(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file ApplicabilityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse applicability %s: %w", path, err)
	}
	return file.Applicability, nil
}

// Recommender schedules the next inspection of an object.
type Recommender struct {
	intervals     []IntervalBand
	defaultMonths int
	preference    []models.Method
	applicable    map[models.ObjectType][]models.Method
}

// NewRecommender compiles cfg. Bands are ordered by decreasing probability so the
// interval never grows as probability rises.
func NewRecommender(cfg RecommendConfig) Recommender {
	def := DefaultRecommendConfig()
	intervals := cfg.Intervals
	if len(intervals) == 0 {
		intervals = def.Intervals
	}
	intervals = append([]IntervalBand(nil), intervals...)
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].MinProbability > intervals[j].MinProbability
	})
	months := 0
	for i := len(intervals) - 1; i >= 0; i-- {
		if intervals[i].Months < 0 {
			intervals[i].Months = 0
		}
		if i < len(intervals)-1 && intervals[i].Months > months {
			intervals[i].Months = months
		}
		months = intervals[i].Months
	}

	defaultMonths := cfg.DefaultMonths
	if defaultMonths <= 0 {
		defaultMonths = def.DefaultMonths
	}
	if len(intervals) > 0 && defaultMonths < intervals[len(intervals)-1].Months {
		defaultMonths = intervals[len(intervals)-1].Months
	}

	prefNames := cfg.MethodPreference
	if len(prefNames) == 0 {
		prefNames = def.MethodPreference
	}
	preference := make([]models.Method, 0, len(prefNames))
	for _, m := range prefNames {
		preference = append(preference, models.Method(m).Normalize())
	}

	applicable := make(map[models.ObjectType][]models.Method, len(cfg.Applicability))
	for objType, methods := range cfg.Applicability {
		allowed := make(map[models.Method]struct{}, len(methods))
		for _, m := range methods {
			allowed[models.Method(m).Normalize()] = struct{}{}
		}
		var ordered []models.Method
		for _, m := range preference {
			if _, ok := allowed[m]; ok {
				ordered = append(ordered, m)
			}
		}
		if len(ordered) > 0 {
			applicable[models.ObjectType(objType)] = ordered
		}
	}

	return Recommender{
		intervals:     intervals,
		defaultMonths: defaultMonths,
		preference:    preference,
		applicable:    applicable,
	}
}

// IntervalMonths returns the inspection interval for a probability.
func (r Recommender) IntervalMonths(p float64) int {
	for _, band := range r.intervals {
		if p >= band.MinProbability {
			return band.Months
		}
	}
	return r.defaultMonths
}

// Recommend builds the schedule for one object. history holds the methods of the
// object's past inspections in date order; its last entry is the preceding one.
func (r Recommender) Recommend(object models.Object, forecast models.RiskForecast, lastObservation time.Time, history []models.Method) models.Recommendation {
	months := r.IntervalMonths(forecast.Probability)
	rec := models.Recommendation{
		ObjectID:          object.ID,
		RiskProbability:   forecast.Probability,
		IntervalMonths:    months,
		RecommendedMethod: r.method(object.Type, history),
	}
	if !lastObservation.IsZero() {
		next := lastObservation.AddDate(0, months, 0)
		if next.Before(lastObservation) {
			next = lastObservation
		}
		rec.NextInspection = next
	}
	return rec
}

func (r Recommender) method(objType models.ObjectType, history []models.Method) models.Method {
	candidates := r.preference
	if table, ok := r.applicable[objType]; ok {
		candidates = table
	}
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) == 1 || len(history) == 0 {
		return candidates[0]
	}
	previous := history[len(history)-1]
	for _, m := range candidates {
		if !m.Equal(previous) {
			return m
		}
	}
	return candidates[0]
}

// Rank orders recommendations by probability descending, then earliest next
// inspection, then object id, and numbers them from 1. Unscheduled entries sort
// after scheduled ones of equal probability.
func Rank(recs []models.Recommendation) []models.Recommendation {
	ranked := append([]models.Recommendation(nil), recs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return urgencyLess(ranked[i], ranked[j])
	})
	for i := range ranked {
		ranked[i].Urgency = i + 1
	}
	return ranked
}

func urgencyLess(a, b models.Recommendation) bool {
	if a.RiskProbability != b.RiskProbability {
		return a.RiskProbability > b.RiskProbability
	}
	az, bz := a.NextInspection.IsZero(), b.NextInspection.IsZero()
	if az != bz {
		return bz
	}
	if !a.NextInspection.Equal(b.NextInspection) {
		return a.NextInspection.Before(b.NextInspection)
	}
	return a.ObjectID < b.ObjectID
}
