package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/integrityos/risk-engine/internal/cache"
	"github.com/integrityos/risk-engine/internal/config"
	"github.com/integrityos/risk-engine/internal/grpc/riskv1"
	"github.com/integrityos/risk-engine/internal/utils"
)

var (
	datasetPath string
	noRetrain   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse a dataset file and print the report as JSON",
	Long: `Reads a dataset in the ImportDataset JSON shape, trains the classifier on its
labeled observations (unless --no-retrain), and writes the full analysis report
to stdout. Logs go to stderr.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to the dataset JSON file (- for stdin)")
	analyzeCmd.Flags().BoolVar(&noRetrain, "no-retrain", false, "Serve the rule fallback instead of training on the dataset")
	_ = analyzeCmd.MarkFlagRequired("dataset")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, cmd.ErrOrStderr())

	req, err := readDataset(cmd.InOrStdin(), datasetPath)
	if err != nil {
		return err
	}
	req.Retrain = !noRetrain

	rt := newApp(cfg, cache.NoopProvider{}, logger)
	ctx := cmd.Context()
	if _, err := rt.service.ImportDataset(ctx, req); err != nil {
		return fmt.Errorf("import dataset: %w", err)
	}
	report, err := rt.service.Analyze(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func readDataset(stdin io.Reader, path string) (*riskv1.ImportDatasetRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()
		r = f
	}
	var req riskv1.ImportDatasetRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return &req, nil
}
