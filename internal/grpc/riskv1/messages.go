package riskv1

// Pipeline is a monitored pipeline.
type Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Object is an asset on a pipeline.
type Object struct {
	ID         string `json:"id"`
	PipelineID string `json:"pipeline_id"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
}

// Observation is one diagnostic record. Date is RFC3339 or YYYY-MM-DD.
type Observation struct {
	ID           string  `json:"id,omitempty"`
	ObjectID     string  `json:"object_id"`
	PipelineID   string  `json:"pipeline_id,omitempty"`
	Method       string  `json:"method"`
	Date         string  `json:"date,omitempty"`
	DepthPercent float64 `json:"depth_percent,omitempty"`
	LengthMM     float64 `json:"length_mm,omitempty"`
	WidthMM      float64 `json:"width_mm,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	Humidity     float64 `json:"humidity,omitempty"`
	Illumination float64 `json:"illumination,omitempty"`
	DefectFound  bool    `json:"defect_found"`
	QualityGrade string  `json:"quality_grade,omitempty"`
	Label        string  `json:"label,omitempty"`
}

// Probabilities is the class distribution of a classification.
type Probabilities struct {
	Normal float64 `json:"normal"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// Classification is the criticality of one observation.
type Classification struct {
	ObservationID string        `json:"observation_id,omitempty"`
	Label         string        `json:"label"`
	Probabilities Probabilities `json:"probabilities"`
	Confidence    float64       `json:"confidence"`
	Method        string        `json:"method"`
	ModelVersion  string        `json:"model_version,omitempty"`
}

// TrainingReport summarises a training run.
type TrainingReport struct {
	Status            string             `json:"status"`
	Reason            string             `json:"reason,omitempty"`
	Samples           int                `json:"samples"`
	TestSamples       int                `json:"test_samples"`
	ClassCounts       map[string]int     `json:"class_counts,omitempty"`
	TrainAccuracy     float64            `json:"train_accuracy"`
	TestAccuracy      float64            `json:"test_accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	ModelVersion      string             `json:"model_version,omitempty"`
	DurationMillis    int64              `json:"duration_ms"`
}

// TrendEstimate is a fitted depth trend.
type TrendEstimate struct {
	ObjectID       string  `json:"object_id"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	Points         int     `json:"points"`
	CurrentDepth   float64 `json:"current_depth"`
	ProjectedDepth float64 `json:"projected_depth_next_period"`
	Direction      string  `json:"direction"`
}

// RiskForecast is an object's failure probability.
type RiskForecast struct {
	ObjectID    string  `json:"object_id"`
	Status      string  `json:"status"`
	Probability float64 `json:"probability"`
	Band        string  `json:"band"`
	Message     string  `json:"message,omitempty"`
}

// Recommendation schedules an object's next inspection.
type Recommendation struct {
	ObjectID           string  `json:"object_id"`
	RiskProbability    float64 `json:"risk_probability"`
	NextInspectionDate string  `json:"next_inspection_date,omitempty"`
	RecommendedMethod  string  `json:"recommended_method,omitempty"`
	IntervalMonths     int     `json:"interval_months"`
	Urgency            int     `json:"urgency,omitempty"`
}

// ObjectAssessment bundles the engine output for one object.
type ObjectAssessment struct {
	Object              Object          `json:"object"`
	ObservationCount    int             `json:"observation_count"`
	DefectCount         int             `json:"defect_count"`
	HighLabelCount      int             `json:"high_label_count"`
	LastObservationDate string          `json:"last_observation_date,omitempty"`
	Latest              *Classification `json:"latest,omitempty"`
	Trend               *TrendEstimate  `json:"trend,omitempty"`
	Forecast            RiskForecast    `json:"forecast"`
	Recommendation      Recommendation  `json:"recommendation"`
}

// CriticalObject is an entry of a pipeline's riskiest objects.
type CriticalObject struct {
	ObjectID           string  `json:"object_id"`
	Probability        float64 `json:"probability"`
	NextInspectionDate string  `json:"next_inspection_date,omitempty"`
}

// PipelineForecast is the rollup of one pipeline.
type PipelineForecast struct {
	PipelineID                     string           `json:"pipeline_id"`
	TotalObjects                   int              `json:"total_objects"`
	ObservationCount               int              `json:"observation_count"`
	CriticalObjectCount            int              `json:"critical_object_count"`
	DefectRate                     float64          `json:"defect_rate"`
	PredictedDefectCountNextPeriod int              `json:"predicted_defect_count_next_period"`
	HighLabelCount                 int              `json:"high_label_count"`
	TopCritical                    []CriticalObject `json:"top_critical,omitempty"`
	Status                         string           `json:"status"`
}

// AnalysisReport is the full output of one analysis run.
type AnalysisReport struct {
	DatasetVersion   uint64             `json:"dataset_version"`
	ModelVersion     string             `json:"model_version,omitempty"`
	ClassifierMethod string             `json:"classifier_method"`
	GeneratedAt      string             `json:"generated_at"`
	Assessments      []ObjectAssessment `json:"assessments"`
	Pipelines        []PipelineForecast `json:"pipelines"`
}

type ClassifyRequest struct {
	Observations []Observation `json:"observations"`
}

type ClassifyResponse struct {
	Classifications []Classification `json:"classifications"`
}

type RetrainRequest struct {
	Observations []Observation `json:"observations"`
}

type RetrainResponse struct {
	Report TrainingReport `json:"report"`
}

// ImportDatasetRequest replaces the served dataset. It is also the dataset file format.
type ImportDatasetRequest struct {
	Pipelines    []Pipeline    `json:"pipelines"`
	Objects      []Object      `json:"objects"`
	Observations []Observation `json:"observations"`
	Retrain      bool          `json:"retrain"`
}

type ImportDatasetResponse struct {
	DatasetVersion uint64          `json:"dataset_version"`
	Report         *TrainingReport `json:"report,omitempty"`
}

type AssessObjectRequest struct {
	ObjectID string `json:"object_id"`
}

type AssessObjectResponse struct {
	DatasetVersion uint64           `json:"dataset_version"`
	Assessment     ObjectAssessment `json:"assessment"`
}

type ForecastPipelineRequest struct {
	PipelineID string `json:"pipeline_id"`
}

type ForecastPipelineResponse struct {
	DatasetVersion uint64           `json:"dataset_version"`
	Forecast       PipelineForecast `json:"forecast"`
}

type TopRisksRequest struct {
	Limit int `json:"limit,omitempty"`
}

type TopRisksResponse struct {
	DatasetVersion uint64             `json:"dataset_version"`
	Assessments    []ObjectAssessment `json:"assessments"`
}

type ModelStatusRequest struct{}

type ModelStatusResponse struct {
	Method            string         `json:"method"`
	ModelVersion      string         `json:"model_version,omitempty"`
	TrainedAt         string         `json:"trained_at,omitempty"`
	PublishedAt       string         `json:"published_at,omitempty"`
	DatasetVersion    uint64         `json:"dataset_version"`
	Report            TrainingReport `json:"report"`
	AnalysisP95Millis float64        `json:"analysis_p95_ms"`
}
