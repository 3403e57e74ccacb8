package engine

import (
	"math"
	"sort"

	"github.com/integrityos/risk-engine/internal/models"
)

// StatusConfig holds the thresholds that map a pipeline onto its status.
type StatusConfig struct {
	MajorDefectRate    float64 `yaml:"majorDefectRate"`
	MajorCritical      int     `yaml:"majorCritical"`
	ElevatedDefectRate float64 `yaml:"elevatedDefectRate"`
	ElevatedCritical   int     `yaml:"elevatedCritical"`
	RegularDefectRate  float64 `yaml:"regularDefectRate"`
}

// AggregateConfig tunes the per-pipeline rollup.
type AggregateConfig struct {
	HighRiskThreshold float64      `yaml:"highRiskThreshold"`
	TopCritical       int          `yaml:"topCritical"`
	Status            StatusConfig `yaml:"status"`
}

// DefaultAggregateConfig returns the standard rollup thresholds.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{
		HighRiskThreshold: 0.6,
		TopCritical:       10,
		Status: StatusConfig{
			MajorDefectRate:    0.5,
			MajorCritical:      10,
			ElevatedDefectRate: 0.3,
			ElevatedCritical:   5,
			RegularDefectRate:  0.15,
		},
	}
}

// Aggregator rolls object assessments up to pipelines. It holds no state.
type Aggregator struct {
	cfg AggregateConfig
}

// NewAggregator builds an Aggregator, filling unset values from DefaultAggregateConfig.
func NewAggregator(cfg AggregateConfig) Aggregator {
	def := DefaultAggregateConfig()
	if cfg.HighRiskThreshold <= 0 {
		cfg.HighRiskThreshold = def.HighRiskThreshold
	}
	if cfg.TopCritical <= 0 {
		cfg.TopCritical = def.TopCritical
	}
	if cfg.Status == (StatusConfig{}) {
		cfg.Status = def.Status
	}
	return Aggregator{cfg: cfg}
}

// Aggregate summarises one pipeline from its objects' assessments and all
// observations recorded under it.
func (a Aggregator) Aggregate(pipelineID string, assessments []models.ObjectAssessment, observations []models.Observation) models.PipelineForecast {
	out := models.PipelineForecast{
		PipelineID:       pipelineID,
		TotalObjects:     len(assessments),
		ObservationCount: len(observations),
	}

	defects := 0
	for _, obs := range observations {
		if obs.DefectFound {
			defects++
		}
	}
	if len(observations) > 0 {
		out.DefectRate = float64(defects) / float64(len(observations))
	}

	var expected float64
	var critical []models.CriticalObject
	for _, as := range assessments {
		p := as.Forecast.Probability
		expected += p
		out.HighLabelCount += as.HighLabelCount
		if p > a.cfg.HighRiskThreshold {
			critical = append(critical, models.CriticalObject{
				ObjectID:       as.Object.ID,
				Probability:    p,
				NextInspection: as.Recommendation.NextInspection,
			})
		}
	}
	out.CriticalObjectCount = len(critical)
	out.PredictedDefectCountNextPeriod = int(math.Round(expected))

	sort.SliceStable(critical, func(i, j int) bool {
		if critical[i].Probability != critical[j].Probability {
			return critical[i].Probability > critical[j].Probability
		}
		return critical[i].ObjectID < critical[j].ObjectID
	})
	if len(critical) > a.cfg.TopCritical {
		critical = critical[:a.cfg.TopCritical]
	}
	out.TopCritical = critical
	out.Status = a.status(out.DefectRate, out.CriticalObjectCount)
	return out
}

func (a Aggregator) status(defectRate float64, critical int) models.PipelineStatus {
	s := a.cfg.Status
	switch {
	case defectRate > s.MajorDefectRate || critical > s.MajorCritical:
		return models.PipelineMajorProgram
	case defectRate > s.ElevatedDefectRate || critical > s.ElevatedCritical:
		return models.PipelineElevated
	case defectRate > s.RegularDefectRate:
		return models.PipelineRegular
	default:
		return models.PipelineGood
	}
}
