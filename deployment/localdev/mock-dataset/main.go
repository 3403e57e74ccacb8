// mock-dataset writes a synthetic inspection dataset in the ImportDataset JSON
// shape, for local runs of `risk-engine analyze` or the ImportDataset RPC.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/integrityos/risk-engine/internal/grpc/riskv1"
	"github.com/integrityos/risk-engine/internal/utils"
)

type pipelineSpec struct {
	id       string
	name     string
	lengthKM int
}

var pipelines = []pipelineSpec{
	{id: "MT-01", name: "Atyrau - Samara", lengthKM: 695},
	{id: "MT-02", name: "Uzen - Atyrau", lengthKM: 650},
	{id: "MT-03", name: "Karazhanbas - Aktau", lengthKM: 150},
}

var (
	objectTypes   = []string{"pipeline_section", "crane", "compressor"}
	objectWeights = []float64{0.7, 0.2, 0.1}

	methods       = []string{"VIK", "UZK", "MFL", "TFI", "GEO", "MPK", "PVK", "RGK", "TVK", "VIBRO", "UTWM"}
	methodWeights = []float64{0.12, 0.22, 0.25, 0.10, 0.06, 0.04, 0.04, 0.05, 0.03, 0.03, 0.04}

	grades       = []string{"satisfactory", "requires_attention", "requires_action", "unacceptable"}
	gradeWeights = []float64{0.35, 0.35, 0.20, 0.10}
)

func main() {
	objects := flag.Int("objects", 200, "Number of inspected objects")
	observations := flag.Int("observations", 2500, "Number of diagnostic observations")
	seed := flag.Int64("seed", 42, "Random seed")
	labeled := flag.Float64("labeled", 0.8, "Fraction of observations carrying a ground-truth label")
	out := flag.String("out", "-", "Output file (- for stdout)")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	req := generate(rng, *objects, *observations, *labeled)

	w := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(req); err != nil {
		log.Fatalf("encode dataset: %v", err)
	}
}

func generate(rng *rand.Rand, numObjects, numObservations int, labeledFraction float64) *riskv1.ImportDatasetRequest {
	req := &riskv1.ImportDatasetRequest{}
	totalKM := 0
	for _, p := range pipelines {
		totalKM += p.lengthKM
		req.Pipelines = append(req.Pipelines, riskv1.Pipeline{ID: p.id, Name: p.name})
	}

	for _, p := range pipelines {
		n := numObjects * p.lengthKM / totalKM
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%s-%04d", p.id, i+1)
			req.Objects = append(req.Objects, riskv1.Object{
				ID:         id,
				PipelineID: p.id,
				Name:       fmt.Sprintf("%s km %d", p.id, i*p.lengthKM/max(n, 1)),
				Type:       pick(rng, objectTypes, objectWeights),
			})
		}
	}
	if len(req.Objects) == 0 {
		return req
	}

	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	days := int(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC).Sub(start).Hours() / 24)
	for i := 0; i < numObservations; i++ {
		obj := req.Objects[rng.Intn(len(req.Objects))]
		defect := rng.Float64() < 0.3
		grade := pick(rng, grades, gradeWeights)

		obs := riskv1.Observation{
			ID:           fmt.Sprintf("diag-%06d", i+1),
			ObjectID:     obj.ID,
			PipelineID:   obj.PipelineID,
			Method:       pick(rng, methods, methodWeights),
			Date:         utils.FormatDate(start.AddDate(0, 0, rng.Intn(days))),
			Temperature:  round(rng.Float64()*60-20, 1),
			Humidity:     round(20+rng.Float64()*75, 1),
			Illumination: round(100+rng.Float64()*900, 0),
			DefectFound:  defect,
			QualityGrade: grade,
		}
		if defect {
			obs.DepthPercent = round(math.Min(rng.ExpFloat64()*18, 95), 1)
			obs.LengthMM = round(10+rng.Float64()*290, 1)
			obs.WidthMM = round(5+rng.Float64()*145, 1)
		} else {
			obs.QualityGrade = grades[rng.Intn(2)]
		}
		if rng.Float64() < labeledFraction {
			obs.Label = label(obs)
		}
		req.Observations = append(req.Observations, obs)
	}
	return req
}

// label assigns ground truth the way field engineers grade records.
func label(o riskv1.Observation) string {
	switch {
	case o.QualityGrade == "unacceptable" || o.DepthPercent > 50:
		return "high"
	case o.QualityGrade == "requires_action" || o.DepthPercent > 30:
		return "medium"
	default:
		return "normal"
	}
}

func pick(rng *rand.Rand, values []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return values[i]
		}
	}
	return values[len(values)-1]
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
