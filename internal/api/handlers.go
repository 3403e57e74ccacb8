package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/grpc/riskv1"
	"github.com/integrityos/risk-engine/internal/models"
	"github.com/integrityos/risk-engine/internal/utils"
)

// Dataset is a decoded ImportDataset payload.
type Dataset struct {
	Pipelines    []models.Pipeline
	Objects      []models.Object
	Observations []models.Observation
}

// FromWireObservation maps one wire observation. An empty date is allowed for
// ad-hoc classification; an unknown label is rejected.
func FromWireObservation(in riskv1.Observation) (models.Observation, error) {
	obs := models.Observation{
		ID:           in.ID,
		ObjectID:     in.ObjectID,
		PipelineID:   in.PipelineID,
		Method:       models.Method(in.Method).Normalize(),
		DepthPercent: in.DepthPercent,
		LengthMM:     in.LengthMM,
		WidthMM:      in.WidthMM,
		Temperature:  in.Temperature,
		Humidity:     in.Humidity,
		Illumination: in.Illumination,
		DefectFound:  in.DefectFound,
		QualityGrade: models.QualityGrade(strings.ToLower(strings.TrimSpace(in.QualityGrade))),
	}
	if in.Date != "" {
		date, err := utils.ParseDate(in.Date)
		if err != nil {
			return models.Observation{}, fmt.Errorf("observation %s: %w", in.ID, err)
		}
		obs.Date = date
	}
	if in.Label != "" {
		label := models.Label(strings.ToLower(strings.TrimSpace(in.Label)))
		if !label.Valid() {
			return models.Observation{}, fmt.Errorf("observation %s: unknown label %q", in.ID, in.Label)
		}
		obs.Label = label
	}
	return obs, nil
}

// FromWireObservations maps a batch, failing on the first invalid entry.
func FromWireObservations(in []riskv1.Observation) ([]models.Observation, error) {
	out := make([]models.Observation, 0, len(in))
	for i, o := range in {
		obs, err := FromWireObservation(o)
		if err != nil {
			return nil, fmt.Errorf("observations[%d]: %w", i, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

// FromWireDataset maps an import payload. Pipeline and object ids are required and
// every id must be unique; unknown object types become "other".
func FromWireDataset(req *riskv1.ImportDatasetRequest) (Dataset, error) {
	if req == nil {
		return Dataset{}, fmt.Errorf("request is nil")
	}
	var ds Dataset
	pipelineIDs := make(map[string]struct{}, len(req.Pipelines))
	for i, p := range req.Pipelines {
		if p.ID == "" {
			return Dataset{}, fmt.Errorf("pipelines[%d]: id is required", i)
		}
		if _, dup := pipelineIDs[p.ID]; dup {
			return Dataset{}, fmt.Errorf("pipelines[%d]: duplicate id %q", i, p.ID)
		}
		pipelineIDs[p.ID] = struct{}{}
		ds.Pipelines = append(ds.Pipelines, models.Pipeline{ID: p.ID, Name: p.Name})
	}
	objectIDs := make(map[string]struct{}, len(req.Objects))
	for i, o := range req.Objects {
		if o.ID == "" {
			return Dataset{}, fmt.Errorf("objects[%d]: id is required", i)
		}
		if _, dup := objectIDs[o.ID]; dup {
			return Dataset{}, fmt.Errorf("objects[%d]: duplicate id %q", i, o.ID)
		}
		objectIDs[o.ID] = struct{}{}
		ds.Objects = append(ds.Objects, models.Object{
			ID:         o.ID,
			PipelineID: o.PipelineID,
			Name:       o.Name,
			Type:       objectType(o.Type),
		})
	}
	observationIDs := make(map[string]struct{}, len(req.Observations))
	for i, o := range req.Observations {
		if o.ObjectID == "" {
			return Dataset{}, fmt.Errorf("observations[%d]: object_id is required", i)
		}
		if o.ID == "" {
			continue
		}
		if _, dup := observationIDs[o.ID]; dup {
			return Dataset{}, fmt.Errorf("observations[%d]: duplicate id %q", i, o.ID)
		}
		observationIDs[o.ID] = struct{}{}
	}
	observations, err := FromWireObservations(req.Observations)
	if err != nil {
		return Dataset{}, err
	}
	ds.Observations = observations
	return ds, nil
}

func objectType(v string) models.ObjectType {
	switch t := models.ObjectType(strings.ToLower(strings.TrimSpace(v))); t {
	case models.ObjectTypeCrane, models.ObjectTypeCompressor, models.ObjectTypePipelineSection:
		return t
	default:
		return models.ObjectTypeOther
	}
}

// ToWireClassification converts a classification result.
func ToWireClassification(observationID string, c models.Classification) riskv1.Classification {
	return riskv1.Classification{
		ObservationID: observationID,
		Label:         string(c.Label),
		Probabilities: riskv1.Probabilities{
			Normal: c.Probabilities.Normal,
			Medium: c.Probabilities.Medium,
			High:   c.Probabilities.High,
		},
		Confidence:   c.Confidence,
		Method:       string(c.Method),
		ModelVersion: c.ModelVersion,
	}
}

// ToWireTrainingReport converts a training report.
func ToWireTrainingReport(r classifier.TrainingReport) riskv1.TrainingReport {
	out := riskv1.TrainingReport{
		Status:         string(r.Status),
		Reason:         r.Reason,
		Samples:        r.Samples,
		TestSamples:    r.TestSamples,
		TrainAccuracy:  r.TrainAccuracy,
		TestAccuracy:   r.TestAccuracy,
		ModelVersion:   r.ModelVersion,
		DurationMillis: r.Duration.Milliseconds(),
	}
	if len(r.ClassCounts) > 0 {
		out.ClassCounts = make(map[string]int, len(r.ClassCounts))
		for label, n := range r.ClassCounts {
			out.ClassCounts[string(label)] = n
		}
	}
	if len(r.FeatureImportance) > 0 {
		out.FeatureImportance = make(map[string]float64, len(r.FeatureImportance))
		for name, v := range r.FeatureImportance {
			out.FeatureImportance[name] = v
		}
	}
	return out
}

// ToWireStatus converts the classifier status.
func ToWireStatus(st classifier.Status) *riskv1.ModelStatusResponse {
	return &riskv1.ModelStatusResponse{
		Method:       string(st.Method),
		ModelVersion: st.ModelVersion,
		TrainedAt:    formatTimestamp(st.TrainedAt),
		PublishedAt:  formatTimestamp(st.PublishedAt),
		Report:       ToWireTrainingReport(st.Report),
	}
}

// ToWireAssessment converts an object assessment.
func ToWireAssessment(a models.ObjectAssessment) riskv1.ObjectAssessment {
	out := riskv1.ObjectAssessment{
		Object: riskv1.Object{
			ID:         a.Object.ID,
			PipelineID: a.Object.PipelineID,
			Name:       a.Object.Name,
			Type:       string(a.Object.Type),
		},
		ObservationCount:    a.ObservationCount,
		DefectCount:         a.DefectCount,
		HighLabelCount:      a.HighLabelCount,
		LastObservationDate: utils.FormatDate(a.LastObservation),
		Forecast: riskv1.RiskForecast{
			ObjectID:    a.Forecast.ObjectID,
			Status:      string(a.Forecast.Status),
			Probability: a.Forecast.Probability,
			Band:        string(a.Forecast.Band),
			Message:     a.Forecast.Message,
		},
		Recommendation: riskv1.Recommendation{
			ObjectID:           a.Recommendation.ObjectID,
			RiskProbability:    a.Recommendation.RiskProbability,
			NextInspectionDate: utils.FormatDate(a.Recommendation.NextInspection),
			RecommendedMethod:  string(a.Recommendation.RecommendedMethod),
			IntervalMonths:     a.Recommendation.IntervalMonths,
			Urgency:            a.Recommendation.Urgency,
		},
	}
	if a.Latest != nil {
		c := ToWireClassification("", *a.Latest)
		out.Latest = &c
	}
	if a.Trend != nil {
		out.Trend = &riskv1.TrendEstimate{
			ObjectID:       a.Trend.ObjectID,
			Slope:          a.Trend.Slope,
			Intercept:      a.Trend.Intercept,
			Points:         a.Trend.Points,
			CurrentDepth:   a.Trend.CurrentDepth,
			ProjectedDepth: a.Trend.ProjectedDepth,
			Direction:      string(a.Trend.Direction),
		}
	}
	return out
}

// ToWireAssessments converts a ranked list.
func ToWireAssessments(in []models.ObjectAssessment) []riskv1.ObjectAssessment {
	out := make([]riskv1.ObjectAssessment, 0, len(in))
	for _, a := range in {
		out = append(out, ToWireAssessment(a))
	}
	return out
}

// ToWirePipelineForecast converts a pipeline rollup.
func ToWirePipelineForecast(p models.PipelineForecast) riskv1.PipelineForecast {
	out := riskv1.PipelineForecast{
		PipelineID:                     p.PipelineID,
		TotalObjects:                   p.TotalObjects,
		ObservationCount:               p.ObservationCount,
		CriticalObjectCount:            p.CriticalObjectCount,
		DefectRate:                     p.DefectRate,
		PredictedDefectCountNextPeriod: p.PredictedDefectCountNextPeriod,
		HighLabelCount:                 p.HighLabelCount,
		Status:                         string(p.Status),
	}
	for _, c := range p.TopCritical {
		out.TopCritical = append(out.TopCritical, riskv1.CriticalObject{
			ObjectID:           c.ObjectID,
			Probability:        c.Probability,
			NextInspectionDate: utils.FormatDate(c.NextInspection),
		})
	}
	return out
}

// ToWireAnalysisReport converts a full analysis run.
func ToWireAnalysisReport(r models.AnalysisReport) riskv1.AnalysisReport {
	out := riskv1.AnalysisReport{
		DatasetVersion:   r.DatasetVersion,
		ModelVersion:     r.ModelVersion,
		ClassifierMethod: string(r.ClassifierMethod),
		GeneratedAt:      formatTimestamp(r.GeneratedAt),
		Assessments:      ToWireAssessments(r.Assessments),
		Pipelines:        make([]riskv1.PipelineForecast, 0, len(r.Pipelines)),
	}
	for _, p := range r.Pipelines {
		out.Pipelines = append(out.Pipelines, ToWirePipelineForecast(p))
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
