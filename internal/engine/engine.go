package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/metrics"
	"github.com/integrityos/risk-engine/internal/models"
	"github.com/integrityos/risk-engine/internal/repo"
)

// DefaultTopRisks is the ranking length used when callers ask for none.
const DefaultTopRisks = 20

// Dataset is the read view the engine analyses. *repo.Dataset implements it.
type Dataset interface {
	Version() uint64
	Pipelines() []models.Pipeline
	Pipeline(id string) (models.Pipeline, bool)
	Objects() []models.Object
	Object(id string) (models.Object, bool)
	ObjectsIn(pipelineID string) []models.Object
	ObservationsOf(objectID string) []models.Observation
	ObservationsIn(pipelineID string) []models.Observation
}

// Classifier labels observations. *classifier.Classifier implements it.
type Classifier interface {
	Predict(obs models.Observation) models.Classification
	Status() classifier.Status
	IsCritical(m models.Method) bool
}

// Settings groups the tuning constants of every stage.
type Settings struct {
	Trend       TrendConfig     `yaml:"trend"`
	Risk        RiskConfig      `yaml:"risk"`
	Recommend   RecommendConfig `yaml:"recommend"`
	Aggregate   AggregateConfig `yaml:"aggregate"`
	Parallelism int             `yaml:"parallelism"`
	TopRisks    int             `yaml:"topRisks"`
}

// DefaultSettings returns production tuning.
func DefaultSettings() Settings {
	return Settings{
		Trend:       DefaultTrendConfig(),
		Risk:        DefaultRiskConfig(),
		Recommend:   DefaultRecommendConfig(),
		Aggregate:   DefaultAggregateConfig(),
		Parallelism: runtime.GOMAXPROCS(0),
		TopRisks:    DefaultTopRisks,
	}
}

type stages struct {
	generation  uint64
	trend       TrendEstimator
	forecaster  Forecaster
	recommender Recommender
	aggregator  Aggregator
	parallelism int
	topRisks    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMemo memoises object assessments. Keys embed the dataset version, model
// version and settings generation, so stale entries are never served.
func WithMemo(memo *expirable.LRU[string, models.ObjectAssessment]) Option {
	return func(e *Engine) {
		e.memo = memo
	}
}

// Engine runs the classification to recommendation flow over a dataset.
type Engine struct {
	logger     *slog.Logger
	classifier Classifier
	memo       *expirable.LRU[string, models.ObjectAssessment]
	generation atomic.Uint64
	current    atomic.Pointer[stages]
}

// New constructs an Engine.
func New(cls Classifier, settings Settings, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger, classifier: cls}
	for _, opt := range opts {
		opt(e)
	}
	e.SetSettings(settings)
	return e
}

// SetSettings compiles and publishes new tuning. In-flight calls finish with the old values.
func (e *Engine) SetSettings(s Settings) {
	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	topRisks := s.TopRisks
	if topRisks <= 0 {
		topRisks = DefaultTopRisks
	}
	e.current.Store(&stages{
		generation:  e.generation.Add(1),
		trend:       NewTrendEstimator(s.Trend),
		forecaster:  NewForecaster(s.Risk, e.classifier.IsCritical),
		recommender: NewRecommender(s.Recommend),
		aggregator:  NewAggregator(s.Aggregate),
		parallelism: parallelism,
		topRisks:    topRisks,
	})
	if e.memo != nil {
		e.memo.Purge()
	}
}

// Analyze assesses every object, ranks them by urgency and rolls them up per pipeline.
func (e *Engine) Analyze(ctx context.Context, ds Dataset) (models.AnalysisReport, error) {
	start := time.Now()
	st := e.current.Load()
	status := e.classifier.Status()

	assessments, err := e.assessAll(ctx, st, ds, ds.Objects(), status.ModelVersion)
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError)
		return models.AnalysisReport{}, err
	}
	ranked := rank(assessments)

	byPipeline := make(map[string][]models.ObjectAssessment)
	for _, as := range ranked {
		byPipeline[as.Object.PipelineID] = append(byPipeline[as.Object.PipelineID], as)
	}
	pipelines := make([]models.PipelineForecast, 0, len(ds.Pipelines()))
	for _, p := range ds.Pipelines() {
		pipelines = append(pipelines, st.aggregator.Aggregate(p.ID, byPipeline[p.ID], ds.ObservationsIn(p.ID)))
	}

	report := models.AnalysisReport{
		DatasetVersion:   ds.Version(),
		ModelVersion:     status.ModelVersion,
		ClassifierMethod: status.Method,
		GeneratedAt:      time.Now().UTC(),
		Assessments:      ranked,
		Pipelines:        pipelines,
	}
	duration := time.Since(start)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	e.logger.Debug("dataset analysed",
		slog.Uint64("dataset_version", ds.Version()),
		slog.Int("objects", len(ranked)),
		slog.Int("pipelines", len(pipelines)),
		slog.String("classifier_method", string(status.Method)),
		slog.Duration("duration", duration),
	)
	return report, nil
}

// AssessObject assesses a single object. Its urgency is left at 0 since ranking needs all objects.
func (e *Engine) AssessObject(ctx context.Context, ds Dataset, objectID string) (models.ObjectAssessment, error) {
	obj, ok := ds.Object(objectID)
	if !ok {
		return models.ObjectAssessment{}, fmt.Errorf("%w: %s", repo.ErrObjectNotFound, objectID)
	}
	if err := ctx.Err(); err != nil {
		return models.ObjectAssessment{}, err
	}
	st := e.current.Load()
	return e.assessCached(st, ds, obj, e.classifier.Status().ModelVersion), nil
}

// ForecastPipeline assesses the objects of one pipeline and rolls them up.
func (e *Engine) ForecastPipeline(ctx context.Context, ds Dataset, pipelineID string) (models.PipelineForecast, error) {
	if _, ok := ds.Pipeline(pipelineID); !ok {
		return models.PipelineForecast{}, fmt.Errorf("%w: %s", repo.ErrPipelineNotFound, pipelineID)
	}
	st := e.current.Load()
	assessments, err := e.assessAll(ctx, st, ds, ds.ObjectsIn(pipelineID), e.classifier.Status().ModelVersion)
	if err != nil {
		return models.PipelineForecast{}, err
	}
	return st.aggregator.Aggregate(pipelineID, rank(assessments), ds.ObservationsIn(pipelineID)), nil
}

// TopRisks returns the most urgent objects. A non-positive limit uses the configured default.
func (e *Engine) TopRisks(ctx context.Context, ds Dataset, limit int) ([]models.ObjectAssessment, error) {
	st := e.current.Load()
	if limit <= 0 {
		limit = st.topRisks
	}
	assessments, err := e.assessAll(ctx, st, ds, ds.Objects(), e.classifier.Status().ModelVersion)
	if err != nil {
		return nil, err
	}
	ranked := rank(assessments)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (e *Engine) assessAll(ctx context.Context, st *stages, ds Dataset, objects []models.Object, modelVersion string) ([]models.ObjectAssessment, error) {
	out := make([]models.ObjectAssessment, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(st.parallelism)
	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.assessCached(st, ds, obj, modelVersion)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assess objects: %w", err)
	}
	return out, nil
}

func (e *Engine) assessCached(st *stages, ds Dataset, obj models.Object, modelVersion string) models.ObjectAssessment {
	if e.memo == nil {
		as, _ := e.assess(st, obj, ds.ObservationsOf(obj.ID), modelVersion)
		return as
	}
	key := fmt.Sprintf("%d|%s|%d|%s", ds.Version(), modelVersion, st.generation, obj.ID)
	if as, ok := e.memo.Get(key); ok {
		return as
	}
	as, consistent := e.assess(st, obj, ds.ObservationsOf(obj.ID), modelVersion)
	if consistent {
		e.memo.Add(key, as)
	}
	return as
}

// assess derives everything for one object. It reports whether every
// classification was served by modelVersion.
func (e *Engine) assess(st *stages, obj models.Object, history []models.Observation, modelVersion string) (models.ObjectAssessment, bool) {
	as := models.ObjectAssessment{
		Object:           obj,
		ObservationCount: len(history),
	}

	methods := make([]models.Method, 0, len(history))
	consistent := true
	for i, obs := range history {
		res := e.classifier.Predict(obs)
		if res.ModelVersion != modelVersion {
			consistent = false
		}
		if obs.DefectFound {
			as.DefectCount++
		}
		label := res.Label
		if obs.Labeled() {
			label = obs.Label
		}
		if label == models.LabelHigh {
			as.HighLabelCount++
		}
		methods = append(methods, obs.Method.Normalize())
		if i == len(history)-1 {
			latest := res
			as.Latest = &latest
			as.LastObservation = obs.Date
		}
	}

	if trend, ok := st.trend.Estimate(obj.ID, st.trend.SeriesFromObservations(history)); ok {
		as.Trend = &trend
		as.Forecast = st.forecaster.Forecast(trend, history)
	} else {
		as.Forecast = st.forecaster.Unassessable(obj.ID)
	}
	as.Recommendation = st.recommender.Recommend(obj, as.Forecast, as.LastObservation, methods)
	return as, consistent
}

func rank(assessments []models.ObjectAssessment) []models.ObjectAssessment {
	ranked := append([]models.ObjectAssessment(nil), assessments...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return urgencyLess(ranked[i].Recommendation, ranked[j].Recommendation)
	})
	for i := range ranked {
		ranked[i].Recommendation.Urgency = i + 1
	}
	return ranked
}
