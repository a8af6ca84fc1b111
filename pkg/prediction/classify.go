package prediction

import (
	"fmt"
	"math"
)

// Threshold is the positive probability above which a result is high risk.
// A probability of exactly Threshold is low risk.
const Threshold = 0.5

// DefaultErrorMessage is shown when a failed result carries no error text.
const DefaultErrorMessage = "An error occurred while processing your request."

// Kind is the verdict category.
type Kind string

const (
	KindHighRisk Kind = "high_risk"
	KindLowRisk  Kind = "low_risk"
	KindError    Kind = "error"
)

// Verdict is the display payload derived from a Result.
type Verdict struct {
	Kind    Kind     `json:"kind"`
	Percent float64  `json:"percent"`           // positive probability x100, one decimal
	Message string   `json:"message,omitempty"` // error text for KindError
	Details []string `json:"details,omitempty"` // service field errors for KindError
}

// Classify maps a prediction result to a verdict. It is pure.
func Classify(r Result) Verdict {
	if !r.Success {
		msg := r.Error
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return Verdict{Kind: KindError, Message: msg, Details: r.Errors}
	}

	var positive float64
	if r.Probability != nil {
		positive = r.Probability.Positive
	}

	kind := KindLowRisk
	if positive > Threshold {
		kind = KindHighRisk
	}
	return Verdict{Kind: kind, Percent: math.Round(positive*1000) / 10}
}

// HighRisk reports whether the verdict indicates heart disease risk.
func (v Verdict) HighRisk() bool { return v.Kind == KindHighRisk }

// Display returns the percentage as shown to the user, e.g. "70.0%".
func (v Verdict) Display() string {
	return fmt.Sprintf("%.1f%%", v.Percent)
}

// Title returns the headline of the verdict.
func (v Verdict) Title() string {
	switch v.Kind {
	case KindHighRisk:
		return "Heart Disease Risk Detected"
	case KindLowRisk:
		return "No Heart Disease Risk Detected"
	default:
		return "Error"
	}
}

// Advice returns the explanatory sentence shown under the verdict.
func (v Verdict) Advice() string {
	switch v.Kind {
	case KindHighRisk:
		return "Based on the provided data, there are indicators suggesting a potential risk of heart disease. " +
			"Please consult with a healthcare professional for a thorough evaluation."
	case KindLowRisk:
		return "Based on the provided data, no significant risk factors for heart disease were identified. " +
			"However, maintaining a healthy lifestyle is always recommended."
	default:
		return v.Message
	}
}
