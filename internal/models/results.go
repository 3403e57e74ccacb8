package models

import "time"

// Label is a criticality class.
type Label string

const (
	LabelNormal Label = "normal"
	LabelMedium Label = "medium"
	LabelHigh   Label = "high"
)

// Labels lists the classes in their fixed index order.
var Labels = []Label{LabelNormal, LabelMedium, LabelHigh}

// Valid reports whether l is a known class.
func (l Label) Valid() bool {
	return l.Index() >= 0
}

// Index returns the position of l in Labels, or -1.
func (l Label) Index() int {
	switch l {
	case LabelNormal:
		return 0
	case LabelMedium:
		return 1
	case LabelHigh:
		return 2
	default:
		return -1
	}
}

// ClassificationMethod identifies which path produced a classification.
type ClassificationMethod string

const (
	MethodMachineLearning ClassificationMethod = "machine_learning"
	MethodRuleBased       ClassificationMethod = "rule_based"
)

// ClassProbabilities holds one probability per class.
type ClassProbabilities struct {
	Normal float64
	Medium float64
	High   float64
}

// Of returns the probability for label l.
func (p ClassProbabilities) Of(l Label) float64 {
	switch l {
	case LabelNormal:
		return p.Normal
	case LabelMedium:
		return p.Medium
	case LabelHigh:
		return p.High
	}
	return 0
}

// Sum returns the total probability mass.
func (p ClassProbabilities) Sum() float64 {
	return p.Normal + p.Medium + p.High
}

// Argmax returns the most probable label; ties resolve towards the less severe class.
func (p ClassProbabilities) Argmax() (Label, float64) {
	best, bestP := LabelNormal, p.Normal
	if p.Medium > bestP {
		best, bestP = LabelMedium, p.Medium
	}
	if p.High > bestP {
		best, bestP = LabelHigh, p.High
	}
	return best, bestP
}

// Classification is the criticality verdict for one observation.
type Classification struct {
	Label         Label
	Probabilities ClassProbabilities
	Confidence    float64
	Method        ClassificationMethod
	ModelVersion  string
}

// TrendDirection is the qualitative sign of a fitted slope.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendEstimate is a linear fit of an object's defect-depth history.
type TrendEstimate struct {
	ObjectID         string
	Slope            float64
	Intercept        float64
	Points           int
	CurrentDepth     float64
	ProjectedDepth   float64
	Direction        TrendDirection
	LastPeriod       float64
	LastObservedDate time.Time
}

// ForecastStatus says whether an object could be assessed.
type ForecastStatus string

const (
	ForecastOK           ForecastStatus = "ok"
	ForecastUnassessable ForecastStatus = "unassessable"
)

// RiskBand is the qualitative category of a failure probability.
type RiskBand string

const (
	RiskUrgent   RiskBand = "urgent"
	RiskElevated RiskBand = "elevated"
	RiskModerate RiskBand = "moderate"
	RiskLow      RiskBand = "low"
)

// RiskForecast is the forward-looking failure probability for one object.
type RiskForecast struct {
	ObjectID    string
	Status      ForecastStatus
	Probability float64
	Band        RiskBand
	Trend       *TrendEstimate
	Message     string
}

// Recommendation schedules the next inspection of an object.
type Recommendation struct {
	ObjectID          string
	RiskProbability   float64
	NextInspection    time.Time
	RecommendedMethod Method
	IntervalMonths    int
	Urgency           int
}

// PipelineStatus summarises what a pipeline needs operationally.
type PipelineStatus string

const (
	PipelineGood         PipelineStatus = "good"
	PipelineRegular      PipelineStatus = "regular"
	PipelineElevated     PipelineStatus = "elevated"
	PipelineMajorProgram PipelineStatus = "major_program"
)

// CriticalObject is a short entry of a pipeline's riskiest objects.
type CriticalObject struct {
	ObjectID       string
	Probability    float64
	NextInspection time.Time
}

// PipelineForecast rolls object forecasts up to a pipeline.
type PipelineForecast struct {
	PipelineID                     string
	TotalObjects                   int
	ObservationCount               int
	CriticalObjectCount            int
	DefectRate                     float64
	PredictedDefectCountNextPeriod int
	HighLabelCount                 int
	TopCritical                    []CriticalObject
	Status                         PipelineStatus
}

// ObjectAssessment bundles everything the engine derives for one object.
type ObjectAssessment struct {
	Object           Object
	ObservationCount int
	DefectCount      int
	HighLabelCount   int
	LastObservation  time.Time
	Latest           *Classification
	Trend            *TrendEstimate
	Forecast         RiskForecast
	Recommendation   Recommendation
}

// AnalysisReport is the full output of one engine run over a dataset.
type AnalysisReport struct {
	DatasetVersion   uint64
	ModelVersion     string
	ClassifierMethod ClassificationMethod
	GeneratedAt      time.Time
	Assessments      []ObjectAssessment
	Pipelines        []PipelineForecast
}
