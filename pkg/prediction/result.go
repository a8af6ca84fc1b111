// Package prediction defines the prediction service's response and turns it
// into a risk verdict for display.
package prediction

import (
	"errors"
	"fmt"
	"math"
)

// Outcome values of Result.Prediction.
const (
	OutcomeNegative = 0
	OutcomePositive = 1
)

// sumTolerance bounds floating point drift in negative+positive.
const sumTolerance = 1e-6

// Probability is the model's class probability pair.
type Probability struct {
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
}

// Result is the JSON body returned by the prediction service.
type Result struct {
	Success     bool         `json:"success"`
	Prediction  *int         `json:"prediction,omitempty"`  // 0 or 1, present iff Success
	Probability *Probability `json:"probability,omitempty"` // class probabilities
	Timestamp   string       `json:"timestamp,omitempty"`   // service-side time, opaque
	Error       string       `json:"error,omitempty"`       // service-reported error
	Errors      []string     `json:"errors,omitempty"`      // per-field messages from the service
}

// ErrMalformed marks a response body that decoded but breaks the result
// invariants.
var ErrMalformed = errors.New("malformed prediction result")

// Check verifies the structural invariants of a decoded result.
func (r *Result) Check() error {
	if r.Success {
		if r.Prediction == nil {
			return fmt.Errorf("%w: success without prediction", ErrMalformed)
		}
		if *r.Prediction != OutcomeNegative && *r.Prediction != OutcomePositive {
			return fmt.Errorf("%w: prediction %d is not 0 or 1", ErrMalformed, *r.Prediction)
		}
	} else if r.Prediction != nil {
		return fmt.Errorf("%w: prediction present on failed result", ErrMalformed)
	}

	if p := r.Probability; p != nil {
		if !unit(p.Negative) || !unit(p.Positive) {
			return fmt.Errorf("%w: probabilities must lie in [0,1]", ErrMalformed)
		}
		if math.Abs(p.Negative+p.Positive-1) > sumTolerance {
			return fmt.Errorf("%w: probabilities sum to %g", ErrMalformed, p.Negative+p.Positive)
		}
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

// Succeeded builds a successful result from the positive class probability.
func Succeeded(positive float64) Result {
	outcome := OutcomeNegative
	if positive > Threshold {
		outcome = OutcomePositive
	}
	return Result{
		Success:     true,
		Prediction:  &outcome,
		Probability: &Probability{Negative: 1 - positive, Positive: positive},
	}
}

// Failed builds a service-reported failure.
func Failed(message string, details ...string) Result {
	return Result{Success: false, Error: message, Errors: details}
}
