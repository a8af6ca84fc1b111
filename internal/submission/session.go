package submission

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kamilpajak/heartrisk/pkg/assessment"
)

// Session pairs one form with its controller. It stays editable while a
// submission is in flight and after any failure.
type Session struct {
	ID string

	ctrl *Controller

	mu     sync.Mutex
	form   assessment.Form
	closed bool
}

// NewSession starts a session holding the default form.
func NewSession(ctrl *Controller) *Session {
	return &Session{
		ID:   uuid.NewString(),
		ctrl: ctrl,
		form: assessment.NewForm(),
	}
}

// Form returns the current form.
func (s *Session) Form() assessment.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetField applies one user edit and returns the updated form.
func (s *Session) SetField(f assessment.Field, raw string) (assessment.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.form, ErrDetached
	}
	s.form = s.form.SetField(f, raw)
	return s.form, nil
}

// Load replaces the whole form with in.
func (s *Session) Load(in assessment.Input) (assessment.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.form, ErrDetached
	}
	s.form = assessment.FormFromInput(in)
	return s.form, nil
}

// Reset restores the default form and dismisses any shown result.
func (s *Session) Reset() assessment.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.form = s.form.Reset()
		s.ctrl.Dismiss()
	}
	return s.form
}

// State returns the controller state.
func (s *Session) State() State {
	return s.ctrl.State()
}

// Submit sends the current form. When the form is not submittable it returns
// the validation errors and leaves the state untouched.
func (s *Session) Submit(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.ctrl.State(), ErrDetached
	}
	in, err := s.form.Input()
	s.mu.Unlock()
	if err != nil {
		return s.ctrl.State(), err
	}
	return s.ctrl.Submit(ctx, in)
}

// Close discards the session. A response still in flight is dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ctrl.Detach()
}
