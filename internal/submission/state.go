// Package submission runs the assessment request lifecycle:
// idle, submitting, then succeeded or failed.
package submission

import (
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

// Status is the lifecycle phase of a controller.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// FailureKind tells transport failures apart from misconfiguration and from
// a reachable service that answered with an unusable body.
type FailureKind string

const (
	FailureTransport       FailureKind = "transport"
	FailureConfiguration   FailureKind = "configuration"
	FailureInvalidResponse FailureKind = "invalid_response"
)

// Messages shown for failed attempts.
const (
	MsgConnectFailed   = "Failed to connect to the server"
	MsgNotConfigured   = "Prediction service is not configured. Set HEARTRISK_ENDPOINT or pass --endpoint."
	MsgInvalidResponse = "Invalid response from the prediction service"
)

// State is a snapshot of the controller. Result is set only when Status is
// StatusSucceeded; Failure and Error only when Status is StatusFailed.
type State struct {
	Status    Status             `json:"status"`
	AttemptID string             `json:"attempt_id,omitempty"`
	Result    *prediction.Result `json:"result,omitempty"`
	Failure   FailureKind        `json:"failure,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// CanSubmit reports whether a new attempt may start from this state.
func (s State) CanSubmit() bool {
	return s.Status != StatusSubmitting
}

// Verdict returns the display payload of a resolved state. ok is false while
// idle or submitting.
func (s State) Verdict() (v prediction.Verdict, ok bool) {
	switch s.Status {
	case StatusSucceeded:
		return prediction.Classify(*s.Result), true
	case StatusFailed:
		return prediction.Verdict{Kind: prediction.KindError, Message: s.Error}, true
	default:
		return prediction.Verdict{}, false
	}
}
