// Package stubserver runs a stand-in prediction service on a loopback port,
// for local development and tests.
package stubserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

// PredictPath is the route served by the stub.
const PredictPath = "/api/predict"

// Responder decides the stub's answer for one assessment.
type Responder func(in assessment.Input) (status int, result prediction.Result)

// Fixed answers every request with the given positive probability.
func Fixed(positive float64) Responder {
	return func(assessment.Input) (int, prediction.Result) {
		return http.StatusOK, prediction.Succeeded(positive)
	}
}

// Failing answers every request with a service-reported error.
func Failing(message string, details ...string) Responder {
	return func(assessment.Input) (int, prediction.Result) {
		return http.StatusBadRequest, prediction.Failed(message, details...)
	}
}

// Validating rejects out-of-range input the way the real service does and
// otherwise answers with positive.
func Validating(positive float64) Responder {
	return func(in assessment.Input) (int, prediction.Result) {
		if err := in.Validate(); err != nil {
			var details []string
			if errs, ok := err.(assessment.ValidationErrors); ok {
				for _, e := range errs {
					details = append(details, e.Error())
				}
			}
			return http.StatusBadRequest, prediction.Failed("Invalid input data", details...)
		}
		return http.StatusOK, prediction.Succeeded(positive)
	}
}

// Server is a running stub.
type Server struct {
	listener net.Listener
	server   *http.Server
	respond  Responder
	requests atomic.Int64
	last     atomic.Pointer[assessment.Input]
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves in the
// background.
func Start(addr string, respond Responder) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &Server{listener: listener, respond: respond}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PredictPath, srv.handlePredict)
	srv.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() { _ = srv.server.Serve(listener) }()

	return srv, nil
}

// URL returns the full prediction endpoint URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s%s", s.listener.Addr().String(), PredictPath)
}

// Requests returns how many predictions were served.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Last returns the most recent decoded assessment, or nil.
func (s *Server) Last() *assessment.Input { return s.last.Load() }

// Stop shuts the server down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	var in assessment.Input
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeResult(w, http.StatusBadRequest, prediction.Failed("Invalid JSON body", err.Error()))
		return
	}
	s.last.Store(&in)

	status, result := s.respond(in)
	result.Timestamp = time.Now().UTC().Format(time.RFC3339)
	writeResult(w, status, result)
}

func writeResult(w http.ResponseWriter, status int, r prediction.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(r)
}
