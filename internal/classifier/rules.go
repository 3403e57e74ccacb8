package classifier

import (
	"github.com/integrityos/risk-engine/internal/features"
	"github.com/integrityos/risk-engine/internal/models"
)

// RuleConfig holds the thresholds of the deterministic fallback.
type RuleConfig struct {
	HighDepth          float64 `yaml:"highDepth"`
	MediumDepth        float64 `yaml:"mediumDepth"`
	ActionQualityScore int     `yaml:"actionQualityScore"`
}

// DefaultRuleConfig returns the thresholds used by the inspection team.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		HighDepth:          50,
		MediumDepth:        30,
		ActionQualityScore: models.GradeRequiresAction.Score(),
	}
}

// Smoothed one-hot triples. P(high) never decreases from one row to the next,
// so raising depth cannot lower the high probability.
var (
	ruleNoDefect = models.ClassProbabilities{Normal: 0.95, Medium: 0.04, High: 0.01}
	ruleNormal   = models.ClassProbabilities{Normal: 0.80, Medium: 0.15, High: 0.05}
	ruleMedium   = models.ClassProbabilities{Normal: 0.10, Medium: 0.80, High: 0.10}
	ruleHigh     = models.ClassProbabilities{Normal: 0.02, Medium: 0.08, High: 0.90}
)

// RuleSet is the rule-based Strategy used whenever no trained model can serve.
type RuleSet struct {
	cfg RuleConfig
}

// NewRuleSet builds a RuleSet, replacing unset thresholds with defaults.
func NewRuleSet(cfg RuleConfig) RuleSet {
	def := DefaultRuleConfig()
	if cfg.HighDepth <= 0 {
		cfg.HighDepth = def.HighDepth
	}
	if cfg.MediumDepth <= 0 {
		cfg.MediumDepth = def.MediumDepth
	}
	if cfg.ActionQualityScore <= 0 {
		cfg.ActionQualityScore = def.ActionQualityScore
	}
	return RuleSet{cfg: cfg}
}

// Method implements Strategy.
func (RuleSet) Method() models.ClassificationMethod {
	return models.MethodRuleBased
}

// Predict evaluates the rules in priority order. It accepts vectors of any length.
func (r RuleSet) Predict(v features.Vector) (models.Classification, error) {
	probs := r.evaluate(v)
	label, confidence := probs.Argmax()
	return models.Classification{
		Label:         label,
		Probabilities: probs,
		Confidence:    confidence,
		Method:        models.MethodRuleBased,
	}, nil
}

func (r RuleSet) evaluate(v features.Vector) models.ClassProbabilities {
	if v.Get(features.DefectFound) == 0 {
		return ruleNoDefect
	}
	depth := v.Get(features.Depth)
	largeAndCritical := v.Get(features.LargeDefect) == 1 && v.Get(features.CriticalMethod) == 1
	switch {
	case depth >= r.cfg.HighDepth || largeAndCritical:
		return ruleHigh
	case depth >= r.cfg.MediumDepth || v.Get(features.QualityScore) >= float64(r.cfg.ActionQualityScore):
		return ruleMedium
	default:
		return ruleNormal
	}
}
