package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/integrityos/risk-engine/internal/api"
	"github.com/integrityos/risk-engine/internal/cache"
	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/engine"
	"github.com/integrityos/risk-engine/internal/grpc/riskv1"
	"github.com/integrityos/risk-engine/internal/models"
	"github.com/integrityos/risk-engine/internal/repo"
	"github.com/integrityos/risk-engine/internal/utils"
)

// RiskService implements the gRPC RiskEngine service.
type RiskService struct {
	riskv1.UnimplementedRiskEngineServer

	logger     *slog.Logger
	store      *repo.Store
	classifier *classifier.Classifier
	engine     *engine.Engine
	snapshots  *classifier.SnapshotStore
	latencies  *utils.LatencyTracker
}

// NewRiskService constructs the service facade. A nil snapshot store disables model persistence.
func NewRiskService(logger *slog.Logger, store *repo.Store, cls *classifier.Classifier, eng *engine.Engine, snapshots *classifier.SnapshotStore) *RiskService {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = repo.NewStore()
	}
	if snapshots == nil {
		snapshots = classifier.NewSnapshotStore(nil, "", 0)
	}
	return &RiskService{
		logger:     logger,
		store:      store,
		classifier: cls,
		engine:     eng,
		snapshots:  snapshots,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// RestoreModel publishes the last persisted model, if any. A missing snapshot is not an error.
func (s *RiskService) RestoreModel(ctx context.Context) error {
	if s.classifier == nil {
		return utils.NewKindError(utils.KindFailedPrecondition, "restore model", "classifier not configured", nil)
	}
	m, err := s.snapshots.Load(ctx)
	if errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Info("no persisted model, serving rule fallback")
		return nil
	}
	if err != nil {
		return utils.NewAppError("restore model", "load snapshot", err)
	}
	if err := s.classifier.Publish(m); err != nil {
		return utils.NewAppError("restore model", "publish snapshot", err)
	}
	return nil
}

// Classify labels ad-hoc observations with the current classifier snapshot.
func (s *RiskService) Classify(ctx context.Context, req *riskv1.ClassifyRequest) (*riskv1.ClassifyResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.classifier == nil {
		return nil, status.Error(codes.FailedPrecondition, "classifier not configured")
	}

	observations, err := api.FromWireObservations(req.Observations)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp := &riskv1.ClassifyResponse{Classifications: make([]riskv1.Classification, 0, len(observations))}
	for _, obs := range observations {
		resp.Classifications = append(resp.Classifications, api.ToWireClassification(obs.ID, s.classifier.Predict(obs)))
	}
	return resp, nil
}

// Retrain fits a model on the given observations, or on the labeled history of
// the current dataset when the request carries none.
func (s *RiskService) Retrain(ctx context.Context, req *riskv1.RetrainRequest) (*riskv1.RetrainResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.classifier == nil {
		return nil, status.Error(codes.FailedPrecondition, "classifier not configured")
	}

	observations, err := api.FromWireObservations(req.Observations)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(observations) == 0 {
		ds, err := s.store.Current()
		if err != nil {
			return nil, s.toStatus(err)
		}
		observations = ds.Observations()
	}

	report, err := s.train(ctx, observations)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &riskv1.RetrainResponse{Report: api.ToWireTrainingReport(report)}, nil
}

// ImportDataset replaces the served dataset and optionally retrains on its full labeled history.
func (s *RiskService) ImportDataset(ctx context.Context, req *riskv1.ImportDatasetRequest) (*riskv1.ImportDatasetResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}

	decoded, err := api.FromWireDataset(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ds := s.store.Replace(decoded.Pipelines, decoded.Objects, decoded.Observations)
	s.logger.Info("dataset imported",
		slog.Uint64("dataset_version", ds.Version()),
		slog.Int("pipelines", len(ds.Pipelines())),
		slog.Int("objects", len(ds.Objects())),
		slog.Int("observations", len(ds.Observations())),
		slog.Time("imported_at", ds.ImportedAt()),
	)

	resp := &riskv1.ImportDatasetResponse{DatasetVersion: ds.Version()}
	if req.Retrain {
		if s.classifier == nil {
			return nil, status.Error(codes.FailedPrecondition, "classifier not configured")
		}
		report, err := s.train(ctx, ds.Observations())
		if err != nil {
			return nil, s.toStatus(err)
		}
		wire := api.ToWireTrainingReport(report)
		resp.Report = &wire
	}
	return resp, nil
}

// AssessObject returns the assessment of one object in the current dataset.
func (s *RiskService) AssessObject(ctx context.Context, req *riskv1.AssessObjectRequest) (*riskv1.AssessObjectResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if req.ObjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "object_id is required")
	}
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}
	ds, err := s.store.Current()
	if err != nil {
		return nil, s.toStatus(err)
	}

	start := time.Now()
	assessment, err := s.engine.AssessObject(ctx, ds, req.ObjectID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	s.observe(start)
	return &riskv1.AssessObjectResponse{DatasetVersion: ds.Version(), Assessment: api.ToWireAssessment(assessment)}, nil
}

// ForecastPipeline returns the rollup of one pipeline.
func (s *RiskService) ForecastPipeline(ctx context.Context, req *riskv1.ForecastPipelineRequest) (*riskv1.ForecastPipelineResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if req.PipelineID == "" {
		return nil, status.Error(codes.InvalidArgument, "pipeline_id is required")
	}
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}
	ds, err := s.store.Current()
	if err != nil {
		return nil, s.toStatus(err)
	}

	start := time.Now()
	forecast, err := s.engine.ForecastPipeline(ctx, ds, req.PipelineID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	s.observe(start)
	return &riskv1.ForecastPipelineResponse{DatasetVersion: ds.Version(), Forecast: api.ToWirePipelineForecast(forecast)}, nil
}

// TopRisks returns the highest-risk objects across the dataset.
func (s *RiskService) TopRisks(ctx context.Context, req *riskv1.TopRisksRequest) (*riskv1.TopRisksResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit cannot be negative")
	}
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}
	ds, err := s.store.Current()
	if err != nil {
		return nil, s.toStatus(err)
	}

	start := time.Now()
	ranked, err := s.engine.TopRisks(ctx, ds, req.Limit)
	if err != nil {
		return nil, s.toStatus(err)
	}
	s.observe(start)
	return &riskv1.TopRisksResponse{DatasetVersion: ds.Version(), Assessments: api.ToWireAssessments(ranked)}, nil
}

// ModelStatus describes the serving classifier and the current dataset.
func (s *RiskService) ModelStatus(ctx context.Context, req *riskv1.ModelStatusRequest) (*riskv1.ModelStatusResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.classifier == nil {
		return nil, status.Error(codes.FailedPrecondition, "classifier not configured")
	}

	resp := api.ToWireStatus(s.classifier.Status())
	if ds, err := s.store.Current(); err == nil {
		resp.DatasetVersion = ds.Version()
	}
	resp.AnalysisP95Millis = float64(s.LatencyP95()) / float64(time.Millisecond)
	return resp, nil
}

// Analyze runs the full analysis over the current dataset.
func (s *RiskService) Analyze(ctx context.Context) (*riskv1.AnalysisReport, error) {
	if s.engine == nil {
		return nil, utils.NewKindError(utils.KindFailedPrecondition, "analyze", "engine not configured", nil)
	}
	ds, err := s.store.Current()
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	start := time.Now()
	report, err := s.engine.Analyze(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	s.observe(start)
	wire := api.ToWireAnalysisReport(report)
	return &wire, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *RiskService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *RiskService) train(ctx context.Context, observations []models.Observation) (classifier.TrainingReport, error) {
	report, err := s.classifier.Train(ctx, observations)
	if err != nil {
		return classifier.TrainingReport{}, utils.NewAppError("train", "classifier training failed", err)
	}
	// A skipped run serves rules, so the persisted model is removed as well.
	if err := s.snapshots.Save(ctx, s.classifier.Model()); err != nil {
		s.logger.Warn("persist model failed", slog.Any("error", err))
	}
	return report, nil
}

func (s *RiskService) observe(start time.Time) {
	s.latencies.Since(start)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		sum := s.latencies.Summary()
		s.logger.Info("analysis latency",
			slog.Int("samples", sum.Count),
			slog.Duration("p50", sum.P50),
			slog.Duration("p95", sum.P95),
			slog.Duration("p99", sum.P99),
			slog.Duration("max", sum.Max),
		)
	}
}

func (s *RiskService) toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, repo.ErrObjectNotFound), errors.Is(err, repo.ErrPipelineNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repo.ErrNoDataset):
		return status.Error(codes.FailedPrecondition, "no dataset imported")
	}
	switch utils.KindOf(err) {
	case utils.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	case utils.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case utils.KindFailedPrecondition:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	s.logger.Error("request failed", slog.Any("error", err))
	return status.Error(codes.Internal, "internal error")
}
