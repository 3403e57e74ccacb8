package features

import (
	"math"

	"github.com/integrityos/risk-engine/internal/models"
)

// Feature positions inside a Vector.
const (
	Depth = iota
	Length
	Width
	QualityScore
	DefectFound
	Area
	Volume
	CriticalMethod
	Temperature
	Humidity
	Illumination
	DepthToArea
	ShapeIndex
	DeepDefect
	LargeDefect

	// Count is the number of features produced by Build.
	Count
)

var names = [Count]string{
	"depth_percent",
	"length_mm",
	"width_mm",
	"quality_score",
	"defect_found",
	"area",
	"volume",
	"critical_method",
	"temperature_norm",
	"humidity_norm",
	"illumination_norm",
	"depth_to_area",
	"shape_index",
	"deep_defect",
	"large_defect",
}

// Vector is an ordered feature vector derived from one observation.
type Vector []float64

// Get returns feature i, or 0 when the vector is too short.
func (v Vector) Get(i int) float64 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

// Names returns the feature schema in vector order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Config holds the thresholds and ranges used to derive features.
type Config struct {
	CriticalMethods []string `yaml:"criticalMethods"`
	DeepDefectDepth float64  `yaml:"deepDefectDepth"`
	LargeDefectArea float64  `yaml:"largeDefectArea"`
	TemperatureMin  float64  `yaml:"temperatureMin"`
	TemperatureMax  float64  `yaml:"temperatureMax"`
	HumidityMax     float64  `yaml:"humidityMax"`
	IlluminationMax float64  `yaml:"illuminationMax"`
}

// DefaultConfig mirrors the calibration used for the historical dataset.
func DefaultConfig() Config {
	return Config{
		CriticalMethods: []string{
			string(models.MethodUltrasonic),
			string(models.MethodRadiographic),
			string(models.MethodMagneticFlux),
			string(models.MethodWallThickness),
			string(models.MethodTransverseFlux),
		},
		DeepDefectDepth: 30,
		LargeDefectArea: 10000,
		TemperatureMin:  -50,
		TemperatureMax:  50,
		HumidityMax:     100,
		IlluminationMax: 1000,
	}
}

// Builder turns observations into feature vectors. It is safe for concurrent use.
type Builder struct {
	cfg      Config
	critical map[models.Method]struct{}
}

// NewBuilder constructs a Builder, filling unset ranges from DefaultConfig.
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.CriticalMethods == nil {
		cfg.CriticalMethods = def.CriticalMethods
	}
	if cfg.DeepDefectDepth <= 0 {
		cfg.DeepDefectDepth = def.DeepDefectDepth
	}
	if cfg.LargeDefectArea <= 0 {
		cfg.LargeDefectArea = def.LargeDefectArea
	}
	if cfg.TemperatureMax <= cfg.TemperatureMin {
		cfg.TemperatureMin, cfg.TemperatureMax = def.TemperatureMin, def.TemperatureMax
	}
	if cfg.HumidityMax <= 0 {
		cfg.HumidityMax = def.HumidityMax
	}
	if cfg.IlluminationMax <= 0 {
		cfg.IlluminationMax = def.IlluminationMax
	}

	critical := make(map[models.Method]struct{}, len(cfg.CriticalMethods))
	for _, m := range cfg.CriticalMethods {
		critical[models.Method(m).Normalize()] = struct{}{}
	}
	return &Builder{cfg: cfg, critical: critical}
}

// IsCritical reports whether m is one of the high-sensitivity methods.
func (b *Builder) IsCritical(m models.Method) bool {
	_, ok := b.critical[m.Normalize()]
	return ok
}

// Build derives the feature vector. It never fails: missing or invalid values become 0.
func (b *Builder) Build(obs models.Observation) Vector {
	depth := nonNegative(obs.DepthPercent)
	length := nonNegative(obs.LengthMM)
	width := nonNegative(obs.WidthMM)
	area := finite(length * width)

	v := make(Vector, Count)
	v[Depth] = depth
	v[Length] = length
	v[Width] = width
	v[QualityScore] = float64(obs.QualityGrade.Score())
	v[DefectFound] = boolFloat(obs.DefectFound)
	v[Area] = area
	v[Volume] = finite(depth * area)
	v[CriticalMethod] = boolFloat(b.IsCritical(obs.Method))

	tMid := (b.cfg.TemperatureMax + b.cfg.TemperatureMin) / 2
	tHalf := (b.cfg.TemperatureMax - b.cfg.TemperatureMin) / 2
	v[Temperature] = clamp((finite(obs.Temperature)-tMid)/tHalf, -1, 1)
	v[Humidity] = clamp(finite(obs.Humidity)/b.cfg.HumidityMax, 0, 1)
	v[Illumination] = clamp(finite(obs.Illumination)/b.cfg.IlluminationMax, 0, 1)

	if area > 0 {
		v[DepthToArea] = depth / area
	}
	if width > 0 {
		v[ShapeIndex] = length / width
	}
	v[DeepDefect] = boolFloat(depth > b.cfg.DeepDefectDepth)
	v[LargeDefect] = boolFloat(area > b.cfg.LargeDefectArea)
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	return v
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
