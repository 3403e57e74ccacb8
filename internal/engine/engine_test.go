package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/features"
	"github.com/integrityos/risk-engine/internal/models"
	"github.com/integrityos/risk-engine/internal/repo"
)

type countingClassifier struct {
	*classifier.Classifier
	calls atomic.Int64
}

func (c *countingClassifier) Predict(obs models.Observation) models.Classification {
	c.calls.Add(1)
	return c.Classifier.Predict(obs)
}

func newRulesClassifier() *countingClassifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &countingClassifier{Classifier: classifier.New(classifier.DefaultConfig(), features.NewBuilder(features.DefaultConfig()), logger)}
}

func year(y int) time.Time {
	return time.Date(y, 6, 1, 0, 0, 0, 0, time.UTC)
}

func fixtureDataset() *repo.Dataset {
	pipelines := []models.Pipeline{{ID: "P1", Name: "North"}, {ID: "P2", Name: "Empty"}}
	objects := []models.Object{
		{ID: "grow", PipelineID: "P1", Type: models.ObjectTypePipelineSection},
		{ID: "calm", PipelineID: "P1", Type: models.ObjectTypeCrane},
		{ID: "fresh", PipelineID: "P1", Type: models.ObjectTypeCompressor},
	}
	observations := []models.Observation{
		{ID: "g1", ObjectID: "grow", Method: models.MethodUltrasonic, Date: year(2019), DepthPercent: 20, LengthMM: 50, WidthMM: 40, DefectFound: true},
		{ID: "g2", ObjectID: "grow", Method: models.MethodUltrasonic, Date: year(2020), DepthPercent: 30, LengthMM: 50, WidthMM: 40, DefectFound: true},
		{ID: "g3", ObjectID: "grow", Method: models.MethodMagneticFlux, Date: year(2021), DepthPercent: 40, LengthMM: 50, WidthMM: 40, DefectFound: true},
		{ID: "c1", ObjectID: "calm", Method: models.MethodVisual, Date: year(2020), DepthPercent: 5, DefectFound: true},
		{ID: "c2", ObjectID: "calm", Method: models.MethodVisual, Date: year(2022), DepthPercent: 5, DefectFound: false},
	}
	return repo.NewDataset(3, pipelines, objects, observations)
}

func TestAnalyzeRanksAndAggregates(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	report, err := eng.Analyze(context.Background(), fixtureDataset())
	require.NoError(t, err)

	assert.Equal(t, uint64(3), report.DatasetVersion)
	assert.Equal(t, models.MethodRuleBased, report.ClassifierMethod)
	require.Len(t, report.Assessments, 3)

	top := report.Assessments[0]
	assert.Equal(t, "grow", top.Object.ID)
	assert.Equal(t, 1, top.Recommendation.Urgency)
	require.NotNil(t, top.Trend)
	assert.InDelta(t, 10, top.Trend.Slope, 1e-9)
	assert.InDelta(t, 50, top.Trend.ProjectedDepth, 1e-9)
	assert.Equal(t, models.RiskUrgent, top.Forecast.Band)
	assert.Equal(t, 1.0, top.Forecast.Probability)
	assert.Equal(t, 3, top.Recommendation.IntervalMonths)
	assert.Equal(t, year(2021).AddDate(0, 3, 0), top.Recommendation.NextInspection)
	assert.Equal(t, models.MethodUltrasonic, top.Recommendation.RecommendedMethod)
	assert.Equal(t, 3, top.DefectCount)
	require.NotNil(t, top.Latest)
	assert.Equal(t, models.MethodRuleBased, top.Latest.Method)

	last := report.Assessments[2]
	assert.Equal(t, "fresh", last.Object.ID)
	assert.Equal(t, models.ForecastUnassessable, last.Forecast.Status)
	assert.Nil(t, last.Latest)

	for i, as := range report.Assessments {
		assert.Equal(t, i+1, as.Recommendation.Urgency)
	}

	require.Len(t, report.Pipelines, 2)
	p1 := report.Pipelines[0]
	assert.Equal(t, "P1", p1.PipelineID)
	assert.Equal(t, 3, p1.TotalObjects)
	assert.Equal(t, 5, p1.ObservationCount)
	assert.InDelta(t, 0.8, p1.DefectRate, 1e-9)
	assert.Equal(t, 1, p1.CriticalObjectCount)
	assert.Equal(t, models.PipelineMajorProgram, p1.Status)

	p2 := report.Pipelines[1]
	assert.Equal(t, 0.0, p2.DefectRate)
	assert.Equal(t, 0, p2.CriticalObjectCount)
	assert.Equal(t, 0, p2.PredictedDefectCountNextPeriod)
}

func TestAssessObjectNotFound(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	_, err := eng.AssessObject(context.Background(), fixtureDataset(), "missing")
	assert.True(t, errors.Is(err, repo.ErrObjectNotFound))
}

func TestForecastPipelineNotFound(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	_, err := eng.ForecastPipeline(context.Background(), fixtureDataset(), "P9")
	assert.True(t, errors.Is(err, repo.ErrPipelineNotFound))
}

func TestForecastPipelineMatchesAnalyze(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	ds := fixtureDataset()
	report, err := eng.Analyze(context.Background(), ds)
	require.NoError(t, err)
	pf, err := eng.ForecastPipeline(context.Background(), ds, "P1")
	require.NoError(t, err)
	assert.Equal(t, report.Pipelines[0], pf)
}

func TestTopRisksLimit(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	top, err := eng.TopRisks(context.Background(), fixtureDataset(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "grow", top[0].Object.ID)

	all, err := eng.TopRisks(context.Background(), fixtureDataset(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Analyze(ctx, fixtureDataset())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoServesRepeatAssessments(t *testing.T) {
	cls := newRulesClassifier()
	memo := expirable.NewLRU[string, models.ObjectAssessment](64, nil, time.Minute)
	eng := New(cls, DefaultSettings(), nil, WithMemo(memo))
	ds := fixtureDataset()

	first, err := eng.AssessObject(context.Background(), ds, "grow")
	require.NoError(t, err)
	calls := cls.calls.Load()
	second, err := eng.AssessObject(context.Background(), ds, "grow")
	require.NoError(t, err)
	assert.Equal(t, calls, cls.calls.Load(), "memoised assessment must not reclassify")
	assert.Equal(t, first, second)

	eng.SetSettings(DefaultSettings())
	assert.Equal(t, 0, memo.Len())
	_, err = eng.AssessObject(context.Background(), ds, "grow")
	require.NoError(t, err)
	assert.Greater(t, cls.calls.Load(), calls)
}

func TestSetSettingsChangesSchedule(t *testing.T) {
	eng := New(newRulesClassifier(), DefaultSettings(), nil)
	ds := fixtureDataset()

	s := DefaultSettings()
	s.Recommend.Intervals = []IntervalBand{{MinProbability: 0.8, Months: 1}}
	eng.SetSettings(s)

	as, err := eng.AssessObject(context.Background(), ds, "grow")
	require.NoError(t, err)
	assert.Equal(t, 1, as.Recommendation.IntervalMonths)
}

func TestRankIsTotalEvenWithRepeatedIDs(t *testing.T) {
	next := year(2022)
	in := []models.ObjectAssessment{
		{Object: models.Object{ID: "A"}, Recommendation: models.Recommendation{ObjectID: "A", RiskProbability: 0.5, NextInspection: next}},
		{Object: models.Object{ID: "A"}, Recommendation: models.Recommendation{ObjectID: "A", RiskProbability: 0.9, NextInspection: next}},
		{Object: models.Object{ID: "B"}, Recommendation: models.Recommendation{ObjectID: "B", RiskProbability: 0.7, NextInspection: next}},
	}
	ranked := rank(in)
	require.Len(t, ranked, 3)
	for i, a := range ranked {
		assert.Equal(t, i+1, a.Recommendation.Urgency)
	}
	assert.Equal(t, 0.9, ranked[0].Recommendation.RiskProbability)
	assert.Equal(t, "B", ranked[1].Object.ID)
	assert.Equal(t, 0, in[0].Recommendation.Urgency, "input must not be mutated")
}
