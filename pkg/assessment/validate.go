package assessment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies why a field value was rejected.
type Kind string

const (
	KindNotANumber      Kind = "not_a_number"
	KindOutOfRange      Kind = "out_of_range"
	KindInvalidCategory Kind = "invalid_category"
)

// ValidationError reports a single rejected field value.
type ValidationError struct {
	Field   Field   `json:"-"`
	Key     string  `json:"field"`
	Kind    Kind    `json:"kind"`
	Value   float64 `json:"-"`
	Message string  `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Key + ": " + e.Message
}

// ValidationErrors is the set of field errors of a whole form or input.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// Validate checks value against the rule of field f. It returns nil when the
// value is acceptable and a *ValidationError otherwise. Validate is pure.
func Validate(f Field, value float64) error {
	if err := validate(f, value); err != nil {
		return err
	}
	return nil
}

func validate(f Field, value float64) *ValidationError {
	if !f.valid() {
		return &ValidationError{Field: f, Key: f.String(), Kind: KindInvalidCategory, Value: value, Message: "unknown field"}
	}
	fail := func(kind Kind, msg string) *ValidationError {
		return &ValidationError{Field: f, Key: f.String(), Kind: kind, Value: value, Message: msg}
	}

	if math.IsNaN(value) {
		return fail(KindNotANumber, f.Label()+" is required and must be a number")
	}

	if r, ok := f.Range(); ok {
		switch {
		case value < r.Min:
			return fail(KindOutOfRange, fmt.Sprintf("%s must be at least %s %s", f.Label(), formatBound(r.Min), f.Unit()))
		case value > r.Max:
			return fail(KindOutOfRange, fmt.Sprintf("%s must be at most %s %s", f.Label(), formatBound(r.Max), f.Unit()))
		}
		return nil
	}

	if value != math.Trunc(value) || math.IsInf(value, 0) || !f.hasCode(int(value)) {
		return fail(KindInvalidCategory, fmt.Sprintf("%s has no option with code %s", f.Label(), formatBound(value)))
	}
	return nil
}

// ParseValue coerces user text to a number. Empty or non-numeric text yields
// NaN, which Validate rejects.
func ParseValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionLabel(f Field, code int) string {
	for _, o := range fieldSpecs[f].opts {
		if o.Code == code {
			return o.Label
		}
	}
	return strconv.Itoa(code)
}
