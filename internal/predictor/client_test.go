package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

func sampleInput() assessment.Input {
	return assessment.Input{
		Age: 45, Sex: assessment.SexMale, ChestPain: assessment.ChestPainNonAnginal,
		RestingBP: 130, Cholesterol: 250, FastingBloodSugar: assessment.No,
		RestECG: assessment.RestECGSTTAbnormality, MaxHeartRate: 150,
		ExerciseAngina: assessment.No, Oldpeak: assessment.STDepressionMild,
		Slope: assessment.SlopeFlat, MajorVessels: 0, Thal: assessment.ThalReversibleDefect,
	}
}

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPredict_PostsJSON(t *testing.T) {
	var gotMethod, gotContentType string
	var got assessment.Input
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true,"prediction":1,"probability":{"negative":0.3,"positive":0.7}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/predict")
	res, err := c.Predict(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, sampleInput(), got)
	assert.True(t, res.Success)
	assert.Equal(t, 0.7, res.Probability.Positive)
}

func TestPredict_ServiceErrorIsNotTransportError(t *testing.T) {
	srv := newServer(t, http.StatusBadRequest, `{"success":false,"error":"Invalid input","errors":["age out of range"]}`)

	res, err := NewClient(srv.URL).Predict(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid input", res.Error)
	assert.Equal(t, []string{"age out of range"}, res.Errors)
}

func TestPredict_DecodeFailures(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		op        string
		malformed bool
	}{
		{"html", "<html>Bad Gateway</html>", "decode", false},
		{"empty", "", "decode", false},
		{"missing success", `{"prediction":1}`, "check", true},
		{"broken invariant", `{"success":true,"prediction":1,"probability":{"negative":0.9,"positive":0.7}}`, "check", true},
		{"rounded probabilities", `{"success":true,"prediction":1,"probability":{"negative":0.3333,"positive":0.6666}}`, "check", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, tt.body)

			_, err := NewClient(srv.URL).Predict(context.Background(), sampleInput())
			var te *TransportError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, tt.op, te.Op)
			assert.Equal(t, tt.malformed, errors.Is(err, prediction.ErrMalformed))
		})
	}
}

func TestPredict_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Predict(context.Background(), sampleInput())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "request", te.Op)
}

func TestPredict_NotConfigured(t *testing.T) {
	_, err := NewClient("").Predict(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrNotConfigured)

	var te *TransportError
	assert.False(t, errors.As(err, &te))
}

func TestPredict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Predict(context.Background(), sampleInput())
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestWithTimeout_DoesNotMutateSharedClient(t *testing.T) {
	shared := &http.Client{}

	c := NewClient("http://127.0.0.1:1", WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Zero(t, shared.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)

	c = NewClient("http://127.0.0.1:1", WithTimeout(time.Second), WithHTTPClient(shared))
	assert.Zero(t, shared.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func TestPredict_PropagatesTraceContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	}()

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = io.WriteString(w, `{"success":true,"prediction":0,"probability":{"negative":0.8,"positive":0.2}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Predict(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.NotEmpty(t, traceparent)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Contains(t, traceparent, spans[0].SpanContext.TraceID().String())
}

func TestDecodeResult(t *testing.T) {
	res, err := decodeResult([]byte(`{"success":false}`))
	require.NoError(t, err)
	assert.Equal(t, prediction.DefaultErrorMessage, prediction.Classify(*res).Message)
}
