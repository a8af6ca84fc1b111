package assessment

import "math"

// Form is the editable state of one assessment. It is a value: SetField and
// Reset return a new Form and leave the receiver untouched.
type Form struct {
	values [fieldCount]float64
}

var defaultValues = [fieldCount]float64{
	FieldAge:               math.NaN(), // unassigned until the user enters an age
	FieldSex:               float64(SexMale),
	FieldChestPain:         float64(ChestPainTypicalAngina),
	FieldRestingBP:         90,
	FieldCholesterol:       120,
	FieldFastingBloodSugar: float64(No),
	FieldRestECG:           float64(RestECGNormal),
	FieldMaxHeartRate:      60,
	FieldExerciseAngina:    float64(No),
	FieldOldpeak:           float64(STDepressionNone),
	FieldSlope:             float64(SlopeUpsloping),
	FieldMajorVessels:      0,
	FieldThal:              float64(ThalNormal),
}

// NewForm returns a form holding the default values.
func NewForm() Form {
	return Form{values: defaultValues}
}

// FormFromInput returns a form pre-filled with every value of in.
func FormFromInput(in Input) Form {
	var f Form
	for _, field := range Fields() {
		f.values[field] = in.Value(field)
	}
	return f
}

// SetField returns a copy of the form with field set to the numeric value of
// raw. Text that is not a number is stored as NaN.
func (f Form) SetField(field Field, raw string) Form {
	return f.SetValue(field, ParseValue(raw))
}

// SetValue returns a copy of the form with field set to v.
func (f Form) SetValue(field Field, v float64) Form {
	if !field.valid() {
		return f
	}
	f.values[field] = v
	return f
}

// Reset returns a form holding the default values.
func (f Form) Reset() Form {
	return NewForm()
}

// Value returns the current value of field. Unassigned fields are NaN.
func (f Form) Value(field Field) float64 {
	if !field.valid() {
		return math.NaN()
	}
	return f.values[field]
}

// Assigned reports whether field holds a number.
func (f Form) Assigned(field Field) bool {
	return !math.IsNaN(f.Value(field))
}

// Errors returns the validation error of every invalid field, in field order.
func (f Form) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, field := range Fields() {
		if err := validate(field, f.values[field]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// FieldError returns the validation error of a single field, or nil.
func (f Form) FieldError(field Field) error {
	return Validate(field, f.Value(field))
}

// CanSubmit reports whether every field is assigned and valid.
func (f Form) CanSubmit() bool {
	return len(f.Errors()) == 0
}

// Input returns the typed assessment when the form can be submitted, or the
// validation errors that block submission.
func (f Form) Input() (Input, error) {
	if errs := f.Errors(); len(errs) > 0 {
		return Input{}, errs
	}
	return inputFromValues(f.values), nil
}

// Values returns the form as a map keyed by wire name. Unassigned fields map
// to nil so the result can be encoded as JSON.
func (f Form) Values() map[string]*float64 {
	out := make(map[string]*float64, fieldCount)
	for _, field := range Fields() {
		v := f.values[field]
		if math.IsNaN(v) {
			out[field.String()] = nil
			continue
		}
		out[field.String()] = &v
	}
	return out
}
