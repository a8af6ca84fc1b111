// Package assessment holds the thirteen clinical fields of a heart disease
// risk assessment, their validation rules and the editable form state.
package assessment

import (
	"fmt"
	"strings"
)

// Field identifies one of the thirteen assessment measurements.
type Field int

const (
	FieldAge Field = iota
	FieldSex
	FieldChestPain
	FieldRestingBP
	FieldCholesterol
	FieldFastingBloodSugar
	FieldRestECG
	FieldMaxHeartRate
	FieldExerciseAngina
	FieldOldpeak
	FieldSlope
	FieldMajorVessels
	FieldThal

	fieldCount = int(FieldThal) + 1
)

// Range is an inclusive numeric bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the inclusive bound.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Option is one enumerated choice of a categorical field.
type Option struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

type fieldSpec struct {
	key   string // wire key
	label string
	unit  string
	rng   *Range
	opts  []Option
	note  string
}

var flagOptions = []Option{{0, "No"}, {1, "Yes"}}

var fieldSpecs = [fieldCount]fieldSpec{
	FieldAge:         {key: "age", label: "Age", unit: "years", rng: &Range{10, 100}},
	FieldSex:         {key: "sex", label: "Sex", opts: []Option{{0, "Male"}, {1, "Female"}}},
	FieldChestPain:   {key: "cp", label: "Chest Pain Type", opts: chestPainOptions},
	FieldRestingBP:   {key: "trestbps", label: "Resting Blood Pressure", unit: "mm Hg", rng: &Range{90, 200}},
	FieldCholesterol: {key: "chol", label: "Serum Cholesterol", unit: "mg/dl", rng: &Range{120, 600}},
	FieldFastingBloodSugar: {
		key: "fbs", label: "Fasting Blood Sugar > 120 mg/dl", opts: flagOptions,
	},
	FieldRestECG:        {key: "restecg", label: "Resting ECG Results", opts: restECGOptions},
	FieldMaxHeartRate:   {key: "thalach", label: "Maximum Heart Rate", unit: "bpm", rng: &Range{60, 220}},
	FieldExerciseAngina: {key: "exang", label: "Exercise Induced Angina", opts: flagOptions},
	FieldOldpeak: {
		key: "oldpeak", label: "ST Depression", opts: stDepressionOptions,
		note: "severity tier, not the measured depression in mm",
	},
	FieldSlope:        {key: "slope", label: "Slope of Peak Exercise ST Segment", opts: slopeOptions},
	FieldMajorVessels: {key: "ca", label: "Number of Major Vessels (0-3)", opts: vesselOptions},
	FieldThal:         {key: "thal", label: "Thalassemia", opts: thalOptions},
}

// Fields returns every field in wire order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ParseField resolves a wire key such as "trestbps" to its Field.
func ParseField(key string) (Field, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, s := range fieldSpecs {
		if s.key == key {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", key)
}

func (f Field) valid() bool { return f >= 0 && int(f) < fieldCount }

// String returns the wire key of the field.
func (f Field) String() string {
	if !f.valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldSpecs[f].key
}

// Label returns the human-readable name of the field.
func (f Field) Label() string {
	if !f.valid() {
		return f.String()
	}
	return fieldSpecs[f].label
}

// Unit returns the measurement unit, empty for categorical fields.
func (f Field) Unit() string {
	if !f.valid() {
		return ""
	}
	return fieldSpecs[f].unit
}

// Note returns a caveat about the field's encoding, if any.
func (f Field) Note() string {
	if !f.valid() {
		return ""
	}
	return fieldSpecs[f].note
}

// Range returns the inclusive bound of a range-bounded field.
// ok is false for categorical fields.
func (f Field) Range() (r Range, ok bool) {
	if !f.valid() || fieldSpecs[f].rng == nil {
		return Range{}, false
	}
	return *fieldSpecs[f].rng, true
}

// Categorical reports whether the field takes one of a closed set of codes.
func (f Field) Categorical() bool {
	return f.valid() && fieldSpecs[f].opts != nil
}

// Options returns the enumerated choices of a categorical field.
func (f Field) Options() []Option {
	if !f.Categorical() {
		return nil
	}
	out := make([]Option, len(fieldSpecs[f].opts))
	copy(out, fieldSpecs[f].opts)
	return out
}

// hasCode reports whether code is one of the field's enumerated codes.
func (f Field) hasCode(code int) bool {
	for _, o := range fieldSpecs[f].opts {
		if o.Code == code {
			return true
		}
	}
	return false
}
