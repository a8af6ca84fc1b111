package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kamilpajak/heartrisk/internal/submission"
	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

type fieldView struct {
	Key         string              `json:"key"`
	Label       string              `json:"label"`
	Unit        string              `json:"unit,omitempty"`
	Note        string              `json:"note,omitempty"`
	Range       *assessment.Range   `json:"range,omitempty"`
	Options     []assessment.Option `json:"options,omitempty"`
	Categorical bool                `json:"categorical"`
}

type verdictView struct {
	prediction.Verdict
	Display string `json:"display"`
	Title   string `json:"title"`
	Advice  string `json:"advice"`
}

type sessionView struct {
	ID        string                      `json:"id"`
	Values    map[string]*float64         `json:"values"`
	Errors    assessment.ValidationErrors `json:"errors"`
	CanSubmit bool                        `json:"can_submit"`
	State     submission.State            `json:"state"`
	Verdict   *verdictView                `json:"verdict,omitempty"`
}

func viewOf(s *submission.Session) sessionView {
	form := s.Form()
	st := s.State()
	errs := form.Errors()
	if errs == nil {
		errs = assessment.ValidationErrors{}
	}
	v := sessionView{
		ID:        s.ID,
		Values:    form.Values(),
		Errors:    errs,
		CanSubmit: len(errs) == 0 && st.CanSubmit(),
		State:     st,
	}
	if verdict, ok := st.Verdict(); ok {
		v.Verdict = &verdictView{
			Verdict: verdict,
			Display: verdict.Display(),
			Title:   verdict.Title(),
			Advice:  verdict.Advice(),
		}
	}
	return v
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleFields(w http.ResponseWriter, r *http.Request) {
	fields := assessment.Fields()
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		fv := fieldView{
			Key:         f.String(),
			Label:       f.Label(),
			Unit:        f.Unit(),
			Note:        f.Note(),
			Options:     f.Options(),
			Categorical: f.Categorical(),
		}
		if rng, ok := f.Range(); ok {
			fv.Range = &rng
		}
		out = append(out, fv)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.opens.Allow() {
		h.reject("open_rate_limited")
		writeError(w, http.StatusTooManyRequests, "too many new sessions, slow down")
		return
	}
	e, err := h.newSession()
	if err != nil {
		h.reject("session_limit")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.logger.Debug("session opened", "session_id", e.session.ID)
	writeJSON(w, http.StatusCreated, viewOf(e.session))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e.session))
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	e, ok := h.remove(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	e.session.Close()
	h.logger.Debug("session closed", "session_id", e.session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	field, err := assessment.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	form, err := e.session.SetField(field, body.Value)
	if errors.Is(err, submission.ErrDetached) {
		writeError(w, http.StatusGone, "session closed")
		return
	}
	if h.opts.Metrics != nil {
		var ve *assessment.ValidationError
		if errors.As(form.FieldError(field), &ve) {
			h.opts.Metrics.ObserveValidation(ve)
		}
	}
	writeJSON(w, http.StatusOK, viewOf(e.session))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	e.session.Reset()
	writeJSON(w, http.StatusOK, viewOf(e.session))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if !e.limiter.Allow() {
		h.reject("rate_limited")
		writeError(w, http.StatusTooManyRequests, "too many submissions, slow down")
		return
	}

	// The attempt outlives the browser request; closing the session is the
	// only way to drop its response.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.opts.SubmitTimeout)
	defer cancel()

	_, err := e.session.Submit(ctx)
	var verrs assessment.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		h.reject("invalid")
		writeJSON(w, http.StatusUnprocessableEntity, viewOf(e.session))
	case errors.Is(err, submission.ErrInFlight):
		h.reject("in_flight")
		writeJSON(w, http.StatusConflict, viewOf(e.session))
	case errors.Is(err, submission.ErrDetached):
		writeError(w, http.StatusGone, "session closed")
	default:
		writeJSON(w, http.StatusOK, viewOf(e.session))
	}
}

func (h *Handler) reject(reason string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.Reject(reason)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
