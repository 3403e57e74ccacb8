package engine

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/integrityos/risk-engine/internal/models"
)

func assessment(id string, p float64) models.ObjectAssessment {
	return models.ObjectAssessment{
		Object:   models.Object{ID: id, PipelineID: "P1"},
		Forecast: models.RiskForecast{ObjectID: id, Probability: p},
	}
}

func TestAggregateEmptyPipeline(t *testing.T) {
	a := NewAggregator(AggregateConfig{})
	got := a.Aggregate("P1", nil, nil)
	want := models.PipelineForecast{PipelineID: "P1", Status: models.PipelineGood}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected empty rollup (-want +got):\n%s", diff)
	}
}

func TestAggregateCounts(t *testing.T) {
	a := NewAggregator(AggregateConfig{})
	assessments := []models.ObjectAssessment{
		assessment("o1", 0.9),
		assessment("o2", 0.6),
		assessment("o3", 0.65),
		assessment("o4", 0.2),
	}
	assessments[0].HighLabelCount = 2
	observations := []models.Observation{
		{DefectFound: true}, {DefectFound: false}, {DefectFound: false}, {DefectFound: false},
	}

	got := a.Aggregate("P1", assessments, observations)
	if got.CriticalObjectCount != 2 {
		t.Fatalf("expected 2 critical objects above 0.6, got %d", got.CriticalObjectCount)
	}
	if got.DefectRate != 0.25 {
		t.Fatalf("expected defect rate 0.25, got %v", got.DefectRate)
	}
	if got.PredictedDefectCountNextPeriod != 2 {
		t.Fatalf("expected round(2.35)=2, got %d", got.PredictedDefectCountNextPeriod)
	}
	if got.TotalObjects != 4 || got.ObservationCount != 4 || got.HighLabelCount != 2 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.TopCritical[0].ObjectID != "o1" || got.TopCritical[1].ObjectID != "o3" {
		t.Fatalf("expected critical objects by probability, got %+v", got.TopCritical)
	}
	if got.Status != models.PipelineRegular {
		t.Fatalf("expected regular status, got %s", got.Status)
	}
}

func TestAggregateTopCriticalLimit(t *testing.T) {
	a := NewAggregator(AggregateConfig{TopCritical: 3})
	var assessments []models.ObjectAssessment
	for i := 0; i < 12; i++ {
		assessments = append(assessments, assessment(fmt.Sprintf("o%02d", i), 0.95))
	}
	got := a.Aggregate("P1", assessments, nil)
	if len(got.TopCritical) != 3 || got.CriticalObjectCount != 12 {
		t.Fatalf("unexpected critical summary: count=%d top=%d", got.CriticalObjectCount, len(got.TopCritical))
	}
	if got.TopCritical[0].ObjectID != "o00" {
		t.Fatalf("expected ties broken by object id, got %s", got.TopCritical[0].ObjectID)
	}
	if got.Status != models.PipelineMajorProgram {
		t.Fatalf("expected major program with 12 critical objects, got %s", got.Status)
	}
}

func TestAggregateStatusThresholds(t *testing.T) {
	a := NewAggregator(AggregateConfig{})
	cases := []struct {
		rate     float64
		critical int
		want     models.PipelineStatus
	}{
		{0.51, 0, models.PipelineMajorProgram},
		{0, 11, models.PipelineMajorProgram},
		{0.31, 0, models.PipelineElevated},
		{0, 6, models.PipelineElevated},
		{0.16, 0, models.PipelineRegular},
		{0.15, 5, models.PipelineGood},
	}
	for _, tc := range cases {
		if got := a.status(tc.rate, tc.critical); got != tc.want {
			t.Fatalf("status(%v, %d) = %s, want %s", tc.rate, tc.critical, got, tc.want)
		}
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	a := NewAggregator(AggregateConfig{})
	assessments := []models.ObjectAssessment{assessment("b", 0.7), assessment("a", 0.7)}
	first := a.Aggregate("P1", assessments, nil)
	second := a.Aggregate("P1", assessments, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("aggregate not deterministic:\n%s", diff)
	}
}
