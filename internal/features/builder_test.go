package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrityos/risk-engine/internal/models"
)

func TestBuildFieldOrder(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	v := b.Build(models.Observation{
		Method:       "uzk",
		DepthPercent: 45,
		LengthMM:     150,
		WidthMM:      80,
		Temperature:  25,
		Humidity:     50,
		Illumination: 500,
		DefectFound:  true,
		QualityGrade: models.GradeRequiresAction,
	})

	require.Len(t, v, Count)
	assert.Equal(t, 45.0, v[Depth])
	assert.Equal(t, 150.0, v[Length])
	assert.Equal(t, 80.0, v[Width])
	assert.Equal(t, 3.0, v[QualityScore])
	assert.Equal(t, 1.0, v[DefectFound])
	assert.Equal(t, 12000.0, v[Area])
	assert.Equal(t, 45.0*12000, v[Volume])
	assert.Equal(t, 1.0, v[CriticalMethod], "method match is case-insensitive")
	assert.InDelta(t, 0.5, v[Temperature], 1e-9)
	assert.InDelta(t, 0.5, v[Humidity], 1e-9)
	assert.InDelta(t, 0.5, v[Illumination], 1e-9)
	assert.InDelta(t, 45.0/12000, v[DepthToArea], 1e-12)
	assert.InDelta(t, 1.875, v[ShapeIndex], 1e-12)
	assert.Equal(t, 1.0, v[DeepDefect])
	assert.Equal(t, 1.0, v[LargeDefect])
}

func TestBuildGuardsDegenerateInput(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	v := b.Build(models.Observation{
		DepthPercent: math.NaN(),
		LengthMM:     120,
		WidthMM:      0,
		Temperature:  math.Inf(1),
		Humidity:     -20,
		Illumination: 5000,
	})

	assert.Equal(t, 0.0, v[Depth])
	assert.Equal(t, 0.0, v[Area])
	assert.Equal(t, 0.0, v[DepthToArea], "zero area must not divide")
	assert.Equal(t, 0.0, v[ShapeIndex], "zero width must not divide")
	assert.InDelta(t, 0.0, v[Temperature], 1e-12)
	assert.Equal(t, 0.0, v[Humidity])
	assert.Equal(t, 1.0, v[Illumination], "out-of-range values are clamped")
	assert.Equal(t, 1.0, v[QualityScore], "unknown grade scores as satisfactory")
	for i, f := range v {
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), "feature %s not finite", Names()[i])
	}
}

func TestBuildTemperatureRange(t *testing.T) {
	b := NewBuilder(Config{})
	cases := map[float64]float64{-80: -1, -50: -1, 0: 0, 50: 1, 120: 1, -25: -0.5}
	for in, want := range cases {
		v := b.Build(models.Observation{Temperature: in})
		assert.InDelta(t, want, v[Temperature], 1e-9, "temperature %v", in)
	}
}

func TestBuilderThresholds(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	shallow := b.Build(models.Observation{DepthPercent: 30, LengthMM: 100, WidthMM: 100})
	assert.Equal(t, 0.0, shallow[DeepDefect], "depth must exceed 30")
	assert.Equal(t, 0.0, shallow[LargeDefect], "area must exceed 10000")

	custom := NewBuilder(Config{CriticalMethods: []string{"VIK"}, DeepDefectDepth: 10})
	v := custom.Build(models.Observation{Method: models.MethodVisual, DepthPercent: 12})
	assert.Equal(t, 1.0, v[CriticalMethod])
	assert.Equal(t, 1.0, v[DeepDefect])
	assert.False(t, custom.IsCritical(models.MethodUltrasonic))
}

func TestNamesMatchCount(t *testing.T) {
	n := Names()
	require.Len(t, n, Count)
	n[0] = "mutated"
	assert.Equal(t, "depth_percent", Names()[0], "Names returns a copy")
}
