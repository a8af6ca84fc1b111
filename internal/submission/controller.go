package submission

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kamilpajak/heartrisk/internal/predictor"
	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

var (
	// ErrInFlight is returned when Submit is called while an attempt is running.
	ErrInFlight = errors.New("a submission is already in flight")
	// ErrDetached is returned once the owning form has gone away.
	ErrDetached = errors.New("submission controller detached")
)

// Predictor sends an assessment to the prediction service.
type Predictor interface {
	Predict(ctx context.Context, in assessment.Input) (*prediction.Result, error)
}

// Hooks are optional callbacks for instrumentation.
type Hooks struct {
	OnComplete func(status Status, failure FailureKind, duration time.Duration)
	OnDiscard  func()
}

// Controller owns the submission state of a single form. At most one request
// is in flight at a time.
type Controller struct {
	predictor Predictor
	logger    *slog.Logger
	emitter   Emitter
	hooks     Hooks

	mu       sync.Mutex
	state    State
	detached bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEmitter registers a transition observer.
func WithEmitter(e Emitter) Option {
	return func(c *Controller) { c.emitter = e }
}

// WithHooks registers instrumentation callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// NewController creates an idle controller bound to p.
func NewController(p Predictor, opts ...Option) *Controller {
	c := &Controller{
		predictor: p,
		logger:    slog.New(slog.DiscardHandler),
		state:     State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit runs one attempt and blocks until it resolves.
//
// It is a no-op returning ErrInFlight while another attempt is submitting,
// and returns the input's validation errors without touching the network or
// the state when in is invalid. Transport and configuration failures are not
// returned as errors: they resolve the attempt to StatusFailed.
func (c *Controller) Submit(ctx context.Context, in assessment.Input) (State, error) {
	if err := in.Validate(); err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	switch {
	case c.detached:
		st := c.state
		c.mu.Unlock()
		return st, ErrDetached
	case !c.state.CanSubmit():
		st := c.state
		c.mu.Unlock()
		c.logger.Debug("submission ignored, attempt in flight", "attempt_id", st.AttemptID)
		return st, ErrInFlight
	}
	id := uuid.NewString()
	c.state = State{Status: StatusSubmitting, AttemptID: id}
	submitting := c.state
	c.mu.Unlock()

	c.logger.Info("submitting assessment", "attempt_id", id)
	c.emit(Event{Type: "submitting", State: submitting})

	start := time.Now()
	res, err := c.predictor.Predict(ctx, in)
	next := resolve(id, res, err)
	elapsed := time.Since(start)

	c.mu.Lock()
	if c.detached || c.state.AttemptID != id {
		c.mu.Unlock()
		c.logger.Info("discarding response for detached form", "attempt_id", id, "status", next.Status)
		if c.hooks.OnDiscard != nil {
			c.hooks.OnDiscard()
		}
		c.emit(Event{Type: "discarded", State: next})
		return next, ErrDetached
	}
	c.state = next
	c.mu.Unlock()

	if next.Status == StatusFailed {
		c.logger.Warn("submission failed", "attempt_id", id, "failure", next.Failure, "error", err, "duration", elapsed)
	} else {
		c.logger.Info("prediction received", "attempt_id", id, "success", next.Result.Success, "duration", elapsed)
	}
	if c.hooks.OnComplete != nil {
		c.hooks.OnComplete(next.Status, next.Failure, elapsed)
	}
	c.emit(Event{Type: string(next.Status), State: next})
	return next, nil
}

// Dismiss returns a resolved controller to idle, dropping the shown result.
// It has no effect while submitting.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusSubmitting {
		c.state = State{Status: StatusIdle}
	}
}

// Detach marks the owning form as gone. The in-flight request, if any, still
// completes but its response never reaches the state, and later Submit calls
// fail with ErrDetached.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
}

func (c *Controller) emit(ev Event) {
	if c.emitter != nil {
		c.emitter.Emit(ev)
	}
}

func resolve(id string, res *prediction.Result, err error) State {
	switch {
	case errors.Is(err, predictor.ErrNotConfigured):
		return State{Status: StatusFailed, AttemptID: id, Failure: FailureConfiguration, Error: MsgNotConfigured}
	case errors.Is(err, prediction.ErrMalformed):
		return State{Status: StatusFailed, AttemptID: id, Failure: FailureInvalidResponse, Error: MsgInvalidResponse}
	case err != nil || res == nil:
		return State{Status: StatusFailed, AttemptID: id, Failure: FailureTransport, Error: MsgConnectFailed}
	default:
		return State{Status: StatusSucceeded, AttemptID: id, Result: res}
	}
}
