package prediction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Threshold(t *testing.T) {
	tests := []struct {
		positive float64
		want     Kind
		display  string
	}{
		{0.0, KindLowRisk, "0.0%"},
		{0.3, KindLowRisk, "30.0%"},
		{0.5, KindLowRisk, "50.0%"},
		{0.500001, KindHighRisk, "50.0%"},
		{0.7, KindHighRisk, "70.0%"},
		{0.12345, KindLowRisk, "12.3%"},
		{0.98765, KindHighRisk, "98.8%"},
		{1.0, KindHighRisk, "100.0%"},
	}

	for _, tt := range tests {
		v := Classify(Succeeded(tt.positive))
		assert.Equal(t, tt.want, v.Kind, "positive=%v", tt.positive)
		assert.Equal(t, tt.display, v.Display(), "positive=%v", tt.positive)
	}
}

func TestClassify_Scenario(t *testing.T) {
	outcome := OutcomePositive
	r := Result{
		Success:     true,
		Prediction:  &outcome,
		Probability: &Probability{Negative: 0.3, Positive: 0.7},
	}

	v := Classify(r)
	assert.Equal(t, KindHighRisk, v.Kind)
	assert.Equal(t, "70.0%", v.Display())
	assert.True(t, v.HighRisk())
	assert.Equal(t, "Heart Disease Risk Detected", v.Title())
}

func TestClassify_Pure(t *testing.T) {
	r := Succeeded(0.61)
	assert.Equal(t, Classify(r), Classify(r))
}

func TestClassify_ServiceError(t *testing.T) {
	v := Classify(Failed("Missing required field: chol", "chol is required"))
	assert.Equal(t, KindError, v.Kind)
	assert.Equal(t, "Missing required field: chol", v.Message)
	assert.Equal(t, []string{"chol is required"}, v.Details)
	assert.Equal(t, "Error", v.Title())
	assert.Equal(t, v.Message, v.Advice())
}

func TestClassify_ServiceErrorFallback(t *testing.T) {
	v := Classify(Result{Success: false})
	assert.Equal(t, KindError, v.Kind)
	assert.Equal(t, DefaultErrorMessage, v.Message)
}

func TestClassify_MissingProbability(t *testing.T) {
	outcome := OutcomeNegative
	v := Classify(Result{Success: true, Prediction: &outcome})
	assert.Equal(t, KindLowRisk, v.Kind)
	assert.Equal(t, "0.0%", v.Display())
	assert.Contains(t, v.Advice(), "no significant risk factors")
}

func TestResultCheck(t *testing.T) {
	one, two := 1, 2
	tests := []struct {
		name string
		r    Result
		ok   bool
	}{
		{"success", Succeeded(0.7), true},
		{"service error", Failed("bad input"), true},
		{"success without prediction", Result{Success: true}, false},
		{"prediction out of set", Result{Success: true, Prediction: &two}, false},
		{"failure with prediction", Result{Success: false, Prediction: &one}, false},
		{"probabilities do not sum", Result{Success: true, Prediction: &one, Probability: &Probability{0.6, 0.6}}, false},
		{"negative probability", Result{Success: true, Prediction: &one, Probability: &Probability{1.2, -0.2}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Check()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformed)
			}
		})
	}
}

func TestResultJSON(t *testing.T) {
	body := `{"success":true,"prediction":1,"probability":{"negative":0.3,"positive":0.7},"timestamp":"2026-01-02T03:04:05"}`

	var r Result
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.NoError(t, r.Check())
	require.NotNil(t, r.Prediction)
	assert.Equal(t, 1, *r.Prediction)
	assert.Equal(t, 0.7, r.Probability.Positive)
	assert.Equal(t, "2026-01-02T03:04:05", r.Timestamp)
}
