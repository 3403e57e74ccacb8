package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/integrityos/risk-engine/internal/features"
	"github.com/integrityos/risk-engine/internal/metrics"
	"github.com/integrityos/risk-engine/internal/models"
)

// Strategy maps a feature vector onto a classification.
type Strategy interface {
	Method() models.ClassificationMethod
	Predict(v features.Vector) (models.Classification, error)
}

// Config controls training and the rule fallback.
type Config struct {
	MinSamplesPerClass int          `yaml:"minSamplesPerClass"`
	TestFraction       float64      `yaml:"testFraction"`
	Forest             ForestConfig `yaml:"forest"`
	Rules              RuleConfig   `yaml:"rules"`
}

// DefaultConfig returns production training settings.
func DefaultConfig() Config {
	return Config{
		MinSamplesPerClass: 10,
		TestFraction:       0.2,
		Forest:             DefaultForestConfig(),
		Rules:              DefaultRuleConfig(),
	}
}

// TrainingStatus is the outcome of a Train call.
type TrainingStatus string

const (
	TrainingTrained TrainingStatus = "trained"
	TrainingSkipped TrainingStatus = "skipped"
)

// TrainingReport summarises a training run.
type TrainingReport struct {
	Status            TrainingStatus       `json:"status"`
	Reason            string               `json:"reason,omitempty"`
	Samples           int                  `json:"samples"`
	TestSamples       int                  `json:"testSamples"`
	ClassCounts       map[models.Label]int `json:"classCounts"`
	TrainAccuracy     float64              `json:"trainAccuracy"`
	TestAccuracy      float64              `json:"testAccuracy"`
	FeatureImportance map[string]float64   `json:"featureImportance,omitempty"`
	ModelVersion      string               `json:"modelVersion,omitempty"`
	Duration          time.Duration        `json:"duration"`
}

// Status describes the state currently serving predictions.
type Status struct {
	Method       models.ClassificationMethod
	ModelVersion string
	TrainedAt    time.Time
	PublishedAt  time.Time
	Report       TrainingReport
}

type snapshot struct {
	strategy    Strategy
	model       *Model
	publishedAt time.Time
	report      TrainingReport
}

// Classifier owns the published prediction state. Readers load one immutable
// snapshot per call; training builds a complete model before a single pointer swap.
type Classifier struct {
	cfg     Config
	builder *features.Builder
	rules   RuleSet
	logger  *slog.Logger
	current atomic.Pointer[snapshot]
}

// New constructs a Classifier serving the rule fallback until a model is trained or published.
func New(cfg Config, builder *features.Builder, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = features.NewBuilder(features.DefaultConfig())
	}
	def := DefaultConfig()
	if cfg.MinSamplesPerClass <= 0 {
		cfg.MinSamplesPerClass = def.MinSamplesPerClass
	}
	if cfg.TestFraction < 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.Forest.Trees <= 0 {
		cfg.Forest.Trees = def.Forest.Trees
	}
	if cfg.Forest.MaxDepth <= 0 {
		cfg.Forest.MaxDepth = def.Forest.MaxDepth
	}
	if cfg.Forest.MinSamplesLeaf <= 0 {
		cfg.Forest.MinSamplesLeaf = def.Forest.MinSamplesLeaf
	}
	if cfg.Forest.Parallelism <= 0 {
		cfg.Forest.Parallelism = def.Forest.Parallelism
	}

	c := &Classifier{
		cfg:     cfg,
		builder: builder,
		rules:   NewRuleSet(cfg.Rules),
		logger:  logger,
	}
	c.current.Store(c.fallbackSnapshot(TrainingReport{Status: TrainingSkipped, Reason: "not trained"}))
	return c
}

func (c *Classifier) fallbackSnapshot(report TrainingReport) *snapshot {
	return &snapshot{strategy: c.rules, publishedAt: time.Now().UTC(), report: report}
}

// Builder exposes the feature builder used for predictions.
func (c *Classifier) Builder() *features.Builder {
	return c.builder
}

// IsCritical reports whether m is a high-sensitivity method under the builder's configuration.
func (c *Classifier) IsCritical(m models.Method) bool {
	return c.builder.IsCritical(m)
}

// Predict classifies one observation.
func (c *Classifier) Predict(obs models.Observation) models.Classification {
	return c.PredictVector(c.builder.Build(obs))
}

// PredictVector classifies a prebuilt vector. A vector the model cannot accept is
// served by the rule fallback instead of failing.
func (c *Classifier) PredictVector(v features.Vector) models.Classification {
	snap := c.current.Load()
	if snap.model != nil {
		res, err := snap.model.Predict(v)
		if err == nil {
			metrics.ObserveClassification(string(res.Method))
			return res
		}
		c.logger.Debug("model prediction rejected, using rules", slog.String("model_version", snap.model.Version), slog.Any("error", err))
		metrics.ObserveFallback(metrics.FallbackSchemaMismatch)
	}
	res, _ := c.rules.Predict(v)
	metrics.ObserveClassification(string(res.Method))
	return res
}

// Status returns the state of the currently published snapshot.
func (c *Classifier) Status() Status {
	snap := c.current.Load()
	st := Status{
		Method:      snap.strategy.Method(),
		PublishedAt: snap.publishedAt,
		Report:      snap.report,
	}
	if snap.model != nil {
		st.ModelVersion = snap.model.Version
		st.TrainedAt = snap.model.TrainedAt
	}
	return st
}

// Model returns the published trained model, or nil while rules are serving.
func (c *Classifier) Model() *Model {
	return c.current.Load().model
}

// Publish installs a previously trained model, e.g. one restored from a SnapshotStore.
func (c *Classifier) Publish(m *Model) error {
	if m == nil {
		return fmt.Errorf("publish: nil model")
	}
	if err := m.compatible(); err != nil {
		metrics.ObserveFallback(metrics.FallbackSchemaMismatch)
		return fmt.Errorf("publish model %s: %w", m.Version, err)
	}
	c.current.Store(&snapshot{strategy: m, model: m, publishedAt: time.Now().UTC(), report: m.Report})
	c.logger.Info("classifier model published", slog.String("model_version", m.Version))
	return nil
}

// Train fits a new forest on the labeled observations and publishes it. With too
// few examples of any class the rule fallback is published and the report says skipped.
// The only error is context cancellation; the previous snapshot stays active then.
func (c *Classifier) Train(ctx context.Context, observations []models.Observation) (TrainingReport, error) {
	start := time.Now()
	data, counts := c.prepare(observations)
	report := TrainingReport{Samples: len(data.y), ClassCounts: counts}

	for _, label := range models.Labels {
		if counts[label] < c.cfg.MinSamplesPerClass {
			report.Status = TrainingSkipped
			report.Reason = fmt.Sprintf("insufficient data: class %s has %d samples, need %d", label, counts[label], c.cfg.MinSamplesPerClass)
			report.Duration = time.Since(start)
			c.current.Store(c.fallbackSnapshot(report))
			metrics.ObserveTraining(string(TrainingSkipped), 0)
			c.logger.Warn("classifier training skipped", slog.String("reason", report.Reason), slog.Int("samples", report.Samples))
			return report, nil
		}
	}

	train, test := splitTrainTest(data, c.cfg.TestFraction, c.cfg.Forest.Seed)
	train.w = balancedWeights(train.y)
	trees, importance, err := fitForest(ctx, c.cfg.Forest, train)
	if err != nil {
		return TrainingReport{}, fmt.Errorf("fit forest: %w", err)
	}

	model := &Model{
		Version:      uuid.NewString(),
		TrainedAt:    time.Now().UTC(),
		FeatureNames: features.Names(),
		Trees:        trees,
	}
	report.Status = TrainingTrained
	report.TestSamples = len(test.y)
	report.TrainAccuracy = accuracy(model, train)
	report.TestAccuracy = accuracy(model, test)
	report.FeatureImportance = make(map[string]float64, len(importance))
	for i, name := range model.FeatureNames {
		report.FeatureImportance[name] = importance[i]
	}
	report.ModelVersion = model.Version
	report.Duration = time.Since(start)
	model.Report = report

	c.current.Store(&snapshot{strategy: model, model: model, publishedAt: time.Now().UTC(), report: report})
	metrics.ObserveTraining(string(TrainingTrained), report.TestAccuracy)
	c.logger.Info("classifier trained",
		slog.String("model_version", model.Version),
		slog.Int("samples", report.Samples),
		slog.Float64("train_accuracy", report.TrainAccuracy),
		slog.Float64("test_accuracy", report.TestAccuracy),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (c *Classifier) prepare(observations []models.Observation) (dataset, map[models.Label]int) {
	counts := make(map[models.Label]int, len(models.Labels))
	for _, l := range models.Labels {
		counts[l] = 0
	}
	var data dataset
	for _, obs := range observations {
		if !obs.Labeled() {
			continue
		}
		data.x = append(data.x, c.builder.Build(obs))
		data.y = append(data.y, obs.Label.Index())
		counts[obs.Label]++
	}
	return data, counts
}

// splitTrainTest shuffles deterministically and holds out the given fraction.
func splitTrainTest(data dataset, fraction float64, seed int64) (dataset, dataset) {
	n := len(data.y)
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * fraction)

	var train, test dataset
	for k, i := range perm {
		if k < nTest {
			test.x = append(test.x, data.x[i])
			test.y = append(test.y, data.y[i])
			continue
		}
		train.x = append(train.x, data.x[i])
		train.y = append(train.y, data.y[i])
	}
	return train, test
}

func accuracy(m *Model, data dataset) float64 {
	if len(data.y) == 0 {
		return 0
	}
	correct := 0
	for i, x := range data.x {
		res, err := m.Predict(x)
		if err == nil && res.Label.Index() == data.y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(data.y))
}
