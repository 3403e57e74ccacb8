package models

import (
	"strings"
	"time"
)

// Pipeline is a monitored pipeline.
type Pipeline struct {
	ID   string
	Name string
}

// ObjectType enumerates inspected asset kinds.
type ObjectType string

const (
	ObjectTypeCrane           ObjectType = "crane"
	ObjectTypeCompressor      ObjectType = "compressor"
	ObjectTypePipelineSection ObjectType = "pipeline_section"
	ObjectTypeOther           ObjectType = "other"
)

// Object is a single inspected asset that belongs to exactly one pipeline.
type Object struct {
	ID         string
	PipelineID string
	Name       string
	Type       ObjectType
}

// Method is an inspection technique code, e.g. UZK (ultrasonic) or MFL.
type Method string

const (
	MethodVisual         Method = "VIK"
	MethodUltrasonic     Method = "UZK"
	MethodRadiographic   Method = "RGK"
	MethodMagneticFlux   Method = "MFL"
	MethodWallThickness  Method = "UTWM"
	MethodTransverseFlux Method = "TFI"
	MethodMagneticPowder Method = "MPK"
	MethodPenetrant      Method = "PVK"
	MethodThermal        Method = "TVK"
	MethodGeodetic       Method = "GEO"
	MethodVibration      Method = "VIBRO"
	MethodAcoustic       Method = "AE"
	MethodTOFD           Method = "TOFD"
)

// Normalize returns the canonical upper-case form of the method code.
func (m Method) Normalize() Method {
	return Method(strings.ToUpper(strings.TrimSpace(string(m))))
}

// Equal compares method codes case-insensitively.
func (m Method) Equal(other Method) bool {
	return m.Normalize() == other.Normalize()
}

// QualityGrade is the inspector's ordinal quality assessment.
type QualityGrade string

const (
	GradeSatisfactory      QualityGrade = "satisfactory"
	GradeRequiresAttention QualityGrade = "requires_attention"
	GradeRequiresAction    QualityGrade = "requires_action"
	GradeUnacceptable      QualityGrade = "unacceptable"
)

// Score maps the grade onto 1..4. Unknown grades score as satisfactory.
func (g QualityGrade) Score() int {
	switch QualityGrade(strings.ToLower(strings.TrimSpace(string(g)))) {
	case GradeRequiresAttention:
		return 2
	case GradeRequiresAction:
		return 3
	case GradeUnacceptable:
		return 4
	default:
		return 1
	}
}

// Valid reports whether g is one of the known grades.
func (g QualityGrade) Valid() bool {
	switch g {
	case GradeSatisfactory, GradeRequiresAttention, GradeRequiresAction, GradeUnacceptable:
		return true
	}
	return false
}

// Observation is one diagnostic record. Measurements that were not taken are NaN or zero.
type Observation struct {
	ID           string
	ObjectID     string
	PipelineID   string
	Method       Method
	Date         time.Time
	DepthPercent float64
	LengthMM     float64
	WidthMM      float64
	Temperature  float64
	Humidity     float64
	Illumination float64
	DefectFound  bool
	QualityGrade QualityGrade
	Label        Label
}

// Labeled reports whether the observation carries a known criticality label.
func (o Observation) Labeled() bool {
	return o.Label.Valid()
}
