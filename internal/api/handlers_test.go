package api

import (
	"math"
	"testing"
	"time"

	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/grpc/riskv1"
	"github.com/integrityos/risk-engine/internal/models"
)

func TestFromWireObservation(t *testing.T) {
	obs, err := FromWireObservation(riskv1.Observation{
		ID:           "obs-1",
		ObjectID:     "obj-1",
		Method:       " uzk ",
		Date:         "2021-03-04",
		DepthPercent: 55,
		DefectFound:  true,
		QualityGrade: "Requires_Action",
		Label:        "HIGH",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if obs.Method != models.MethodUltrasonic {
		t.Fatalf("method not normalised: %q", obs.Method)
	}
	if !obs.Date.Equal(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", obs.Date)
	}
	if obs.QualityGrade != models.GradeRequiresAction || obs.Label != models.LabelHigh {
		t.Fatalf("unexpected grade/label %q/%q", obs.QualityGrade, obs.Label)
	}
}

func TestFromWireObservationOptionalFields(t *testing.T) {
	obs, err := FromWireObservation(riskv1.Observation{ObjectID: "obj-1", Method: "MFL"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !obs.Date.IsZero() || obs.Labeled() {
		t.Fatalf("expected zero date and no label, got %+v", obs)
	}
}

func TestFromWireObservationRejectsBadInput(t *testing.T) {
	if _, err := FromWireObservation(riskv1.Observation{ID: "a", Label: "catastrophic"}); err == nil {
		t.Fatalf("expected error for unknown label")
	}
	if _, err := FromWireObservation(riskv1.Observation{ID: "b", Date: "04/03/2021"}); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestFromWireDataset(t *testing.T) {
	ds, err := FromWireDataset(&riskv1.ImportDatasetRequest{
		Pipelines: []riskv1.Pipeline{{ID: "P1", Name: "North"}},
		Objects: []riskv1.Object{
			{ID: "o1", PipelineID: "P1", Type: "Crane"},
			{ID: "o2", PipelineID: "P1", Type: "tank"},
		},
		Observations: []riskv1.Observation{{ID: "x", ObjectID: "o1", Method: "UZK", Date: "2020-01-01"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ds.Pipelines) != 1 || len(ds.Objects) != 2 || len(ds.Observations) != 1 {
		t.Fatalf("unexpected dataset sizes: %+v", ds)
	}
	if ds.Objects[0].Type != models.ObjectTypeCrane || ds.Objects[1].Type != models.ObjectTypeOther {
		t.Fatalf("unexpected object types %q %q", ds.Objects[0].Type, ds.Objects[1].Type)
	}
}

func TestFromWireDatasetValidation(t *testing.T) {
	cases := map[string]*riskv1.ImportDatasetRequest{
		"nil":                 nil,
		"pipeline without id": {Pipelines: []riskv1.Pipeline{{Name: "x"}}},
		"object without id":   {Objects: []riskv1.Object{{PipelineID: "P1"}}},
		"orphan observation":  {Observations: []riskv1.Observation{{ID: "x", Method: "UZK"}}},
		"duplicate pipeline":  {Pipelines: []riskv1.Pipeline{{ID: "P1"}, {ID: "P1"}}},
		"duplicate object":    {Objects: []riskv1.Object{{ID: "A"}, {ID: "A"}, {ID: "B"}}},
		"duplicate observation": {Observations: []riskv1.Observation{
			{ID: "x", ObjectID: "A", Method: "UZK"},
			{ID: "x", ObjectID: "B", Method: "UZK"},
		}},
	}
	for name, req := range cases {
		if _, err := FromWireDataset(req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestToWireTrainingReport(t *testing.T) {
	report := classifier.TrainingReport{
		Status:            classifier.TrainingTrained,
		Samples:           90,
		ClassCounts:       map[models.Label]int{models.LabelHigh: 30},
		FeatureImportance: map[string]float64{"depth_percent": 0.5},
		ModelVersion:      "m-1",
		Duration:          1500 * time.Millisecond,
	}
	out := ToWireTrainingReport(report)
	if out.Status != "trained" || out.ClassCounts["high"] != 30 || out.DurationMillis != 1500 {
		t.Fatalf("unexpected report %+v", out)
	}
	if out.FeatureImportance["depth_percent"] != 0.5 {
		t.Fatalf("feature importance not copied")
	}
}

func TestToWireAssessment(t *testing.T) {
	last := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	a := models.ObjectAssessment{
		Object:           models.Object{ID: "o1", PipelineID: "P1", Type: models.ObjectTypeCompressor},
		ObservationCount: 3,
		DefectCount:      2,
		LastObservation:  last,
		Latest:           &models.Classification{Label: models.LabelMedium, Method: models.MethodRuleBased},
		Trend:            &models.TrendEstimate{ObjectID: "o1", Slope: 10, ProjectedDepth: 40, Direction: models.TrendIncreasing},
		Forecast:         models.RiskForecast{ObjectID: "o1", Status: models.ForecastOK, Probability: 0.8, Band: models.RiskUrgent},
		Recommendation: models.Recommendation{
			ObjectID:          "o1",
			RiskProbability:   0.8,
			NextInspection:    last.AddDate(0, 3, 0),
			RecommendedMethod: models.MethodUltrasonic,
			IntervalMonths:    3,
			Urgency:           1,
		},
	}
	out := ToWireAssessment(a)
	if out.LastObservationDate != "2021-06-01" || out.Recommendation.NextInspectionDate != "2021-09-01" {
		t.Fatalf("unexpected dates %q %q", out.LastObservationDate, out.Recommendation.NextInspectionDate)
	}
	if out.Latest == nil || out.Latest.Label != "medium" {
		t.Fatalf("latest classification missing: %+v", out.Latest)
	}
	if out.Trend == nil || out.Trend.ProjectedDepth != 40 || out.Trend.Direction != "increasing" {
		t.Fatalf("trend missing: %+v", out.Trend)
	}
	if out.Forecast.Band != "urgent" || out.Recommendation.RecommendedMethod != "UZK" {
		t.Fatalf("unexpected forecast/recommendation %+v %+v", out.Forecast, out.Recommendation)
	}
}

func TestToWireAssessmentUnassessable(t *testing.T) {
	out := ToWireAssessment(models.ObjectAssessment{
		Object:   models.Object{ID: "fresh"},
		Forecast: models.RiskForecast{ObjectID: "fresh", Status: models.ForecastUnassessable, Band: models.RiskLow},
	})
	if out.Trend != nil || out.Latest != nil {
		t.Fatalf("expected no trend or latest classification")
	}
	if out.LastObservationDate != "" || out.Recommendation.NextInspectionDate != "" {
		t.Fatalf("zero dates must be omitted")
	}
}

func TestToWireAnalysisReport(t *testing.T) {
	report := models.AnalysisReport{
		DatasetVersion:   4,
		ModelVersion:     "m-2",
		ClassifierMethod: models.MethodMachineLearning,
		GeneratedAt:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Pipelines: []models.PipelineForecast{{
			PipelineID:  "P1",
			DefectRate:  0.25,
			Status:      models.PipelineRegular,
			TopCritical: []models.CriticalObject{{ObjectID: "o1", Probability: 0.9}},
		}},
	}
	out := ToWireAnalysisReport(report)
	if out.GeneratedAt != "2024-01-02T03:04:05Z" || out.ClassifierMethod != "machine_learning" {
		t.Fatalf("unexpected header %+v", out)
	}
	if out.Assessments == nil || len(out.Assessments) != 0 {
		t.Fatalf("assessments should be an empty list")
	}
	if len(out.Pipelines) != 1 || out.Pipelines[0].Status != "regular" || out.Pipelines[0].TopCritical[0].ObjectID != "o1" {
		t.Fatalf("unexpected pipelines %+v", out.Pipelines)
	}
	if math.Abs(out.Pipelines[0].DefectRate-0.25) > 1e-12 {
		t.Fatalf("unexpected defect rate %v", out.Pipelines[0].DefectRate)
	}
}

func TestToWireStatusFallback(t *testing.T) {
	st := ToWireStatus(classifier.Status{Method: models.MethodRuleBased, Report: classifier.TrainingReport{Status: classifier.TrainingSkipped}})
	if st.Method != "rule_based" || st.TrainedAt != "" || st.Report.Status != "skipped" {
		t.Fatalf("unexpected status %+v", st)
	}
}
