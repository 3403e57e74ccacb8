package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/integrityos/risk-engine/internal/features"
	"github.com/integrityos/risk-engine/internal/models"
)

const numClasses = 3

// ErrSchemaMismatch signals that a vector does not fit the trained feature layout.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Node is one node of a decision tree. Leaves have Left == -1 and carry Dist.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Dist      []float64 `json:"d,omitempty"`
}

// Tree is a flattened CART tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) leaf(v features.Vector) []float64 {
	i := 0
	for steps := 0; i >= 0 && i < len(t.Nodes) && steps <= len(t.Nodes); steps++ {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Dist
		}
		if v.Get(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return nil
}

// Model is an immutable trained random forest.
type Model struct {
	Version      string         `json:"version"`
	TrainedAt    time.Time      `json:"trainedAt"`
	FeatureNames []string       `json:"featureNames"`
	Trees        []Tree         `json:"trees"`
	Report       TrainingReport `json:"report"`
}

// Method implements Strategy.
func (m *Model) Method() models.ClassificationMethod {
	return models.MethodMachineLearning
}

// Predict averages the leaf distributions of all trees.
func (m *Model) Predict(v features.Vector) (models.Classification, error) {
	if len(v) != len(m.FeatureNames) {
		return models.Classification{}, fmt.Errorf("%w: model expects %d features, got %d", ErrSchemaMismatch, len(m.FeatureNames), len(v))
	}
	if len(m.Trees) == 0 {
		return models.Classification{}, errors.New("model has no trees")
	}

	var sum [numClasses]float64
	for _, t := range m.Trees {
		dist := t.leaf(v)
		if len(dist) != numClasses {
			return models.Classification{}, fmt.Errorf("%w: corrupt leaf", ErrSchemaMismatch)
		}
		for c := range sum {
			sum[c] += dist[c]
		}
	}
	total := sum[0] + sum[1] + sum[2]
	if total <= 0 {
		return models.Classification{}, errors.New("empty forest vote")
	}
	probs := models.ClassProbabilities{
		Normal: sum[0] / total,
		Medium: sum[1] / total,
		High:   sum[2] / total,
	}
	label, confidence := probs.Argmax()
	return models.Classification{
		Label:         label,
		Probabilities: probs,
		Confidence:    confidence,
		Method:        models.MethodMachineLearning,
		ModelVersion:  m.Version,
	}, nil
}

// compatible reports whether the model was trained on the current feature layout.
func (m *Model) compatible() error {
	if !slices.Equal(m.FeatureNames, features.Names()) {
		return fmt.Errorf("%w: model features %v", ErrSchemaMismatch, m.FeatureNames)
	}
	return nil
}

// ForestConfig tunes random forest training.
type ForestConfig struct {
	Trees          int   `yaml:"trees"`
	MaxDepth       int   `yaml:"maxDepth"`
	MinSamplesLeaf int   `yaml:"minSamplesLeaf"`
	Seed           int64 `yaml:"seed"`
	Parallelism    int   `yaml:"parallelism"`
}

// DefaultForestConfig returns the production forest shape.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:          100,
		MaxDepth:       10,
		MinSamplesLeaf: 1,
		Seed:           42,
		Parallelism:    4,
	}
}

type dataset struct {
	x [][]float64
	y []int
	w []float64
}

// balancedWeights weights each sample by n / (classes * count(class)).
func balancedWeights(y []int) []float64 {
	var counts [numClasses]int
	for _, c := range y {
		counts[c]++
	}
	present := 0
	for _, n := range counts {
		if n > 0 {
			present++
		}
	}
	w := make([]float64, len(y))
	for i, c := range y {
		w[i] = float64(len(y)) / float64(present*counts[c])
	}
	return w
}

// fitForest grows cfg.Trees trees in parallel. Each tree owns a RNG seeded from
// cfg.Seed and its index so the result does not depend on scheduling.
func fitForest(ctx context.Context, cfg ForestConfig, data dataset) ([]Tree, []float64, error) {
	trees := make([]Tree, cfg.Trees)
	importances := make([][]float64, cfg.Trees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Parallelism))
	for i := 0; i < cfg.Trees; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gr := newGrower(cfg, data, rand.New(rand.NewSource(cfg.Seed+int64(i)+1)))
			gr.grow(gr.bootstrap(), 0)
			trees[i] = Tree{Nodes: gr.nodes}
			importances[i] = gr.importance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	total := make([]float64, len(data.x[0]))
	for _, imp := range importances {
		for f, v := range imp {
			total[f] += v
		}
	}
	var sum float64
	for _, v := range total {
		sum += v
	}
	if sum > 0 {
		for f := range total {
			total[f] /= sum
		}
	}
	return trees, total, nil
}

type grower struct {
	cfg        ForestConfig
	data       dataset
	rng        *rand.Rand
	mtry       int
	nodes      []Node
	importance []float64
}

func newGrower(cfg ForestConfig, data dataset, rng *rand.Rand) *grower {
	nf := len(data.x[0])
	return &grower{
		cfg:        cfg,
		data:       data,
		rng:        rng,
		mtry:       max(1, int(math.Sqrt(float64(nf)))),
		importance: make([]float64, nf),
	}
}

func (g *grower) bootstrap() []int {
	n := len(g.data.y)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = g.rng.Intn(n)
	}
	return idx
}

func (g *grower) distribution(idx []int) ([numClasses]float64, float64) {
	var dist [numClasses]float64
	var total float64
	for _, i := range idx {
		dist[g.data.y[i]] += g.data.w[i]
		total += g.data.w[i]
	}
	return dist, total
}

func (g *grower) grow(idx []int, depth int) int {
	dist, total := g.distribution(idx)
	id := len(g.nodes)
	g.nodes = append(g.nodes, Node{Left: -1, Right: -1})

	if depth >= g.cfg.MaxDepth || len(idx) < 2*g.cfg.MinSamplesLeaf || pure(dist) {
		g.nodes[id].Dist = normalize(dist, total)
		return id
	}

	s, ok := g.bestSplit(idx, dist, total)
	if !ok {
		g.nodes[id].Dist = normalize(dist, total)
		return id
	}
	g.importance[s.feature] += s.gain

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.data.x[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[id].Feature = s.feature
	g.nodes[id].Threshold = s.threshold
	g.nodes[id].Left = l
	g.nodes[id].Right = r
	return id
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (g *grower) bestSplit(idx []int, parent [numClasses]float64, total float64) (split, bool) {
	best := split{gain: 1e-12}
	found := false
	parentImpurity := total * gini(parent, total)
	minLeaf := max(1, g.cfg.MinSamplesLeaf)

	sorted := make([]int, len(idx))
	for _, f := range g.rng.Perm(len(g.importance))[:g.mtry] {
		f := f
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, b int) int {
			va, vb := g.data.x[a][f], g.data.x[b][f]
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})

		var left [numClasses]float64
		var leftTotal float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			left[g.data.y[i]] += g.data.w[i]
			leftTotal += g.data.w[i]

			cur, next := g.data.x[i][f], g.data.x[sorted[k+1]][f]
			if cur == next || k+1 < minLeaf || len(sorted)-(k+1) < minLeaf {
				continue
			}
			var right [numClasses]float64
			for c := range right {
				right[c] = parent[c] - left[c]
			}
			rightTotal := total - leftTotal
			gain := parentImpurity - leftTotal*gini(left, leftTotal) - rightTotal*gini(right, rightTotal)
			if gain > best.gain {
				best = split{feature: f, threshold: (cur + next) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func gini(dist [numClasses]float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	impurity := 1.0
	for _, d := range dist {
		p := d / total
		impurity -= p * p
	}
	return impurity
}

func pure(dist [numClasses]float64) bool {
	nonZero := 0
	for _, d := range dist {
		if d > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(dist [numClasses]float64, total float64) []float64 {
	out := make([]float64, numClasses)
	if total <= 0 {
		for c := range out {
			out[c] = 1.0 / numClasses
		}
		return out
	}
	for c := range out {
		out[c] = dist[c] / total
	}
	return out
}
