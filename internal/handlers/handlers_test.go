package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
	"github.com/juancollazo-ch/holded-order-monitor/internal/worker"
)

type fakeQueue struct {
	result serviceresponse.WorkflowResult
	err    error
	block  bool
	got    *worker.Request
}

func (f *fakeQueue) Submit(ctx context.Context, req worker.Request) (<-chan serviceresponse.WorkflowResult, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan serviceresponse.WorkflowResult, 1)
	if !f.block {
		ch <- f.result
	}
	return ch, nil
}

func TestRunHandler(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		body        string
		queue       *fakeQueue
		wantStatus  int
		wantTrigger string
		wantRefTime bool
	}{
		{
			name:        "successful run without body",
			method:      http.MethodPost,
			body:        "",
			queue:       &fakeQueue{result: serviceresponse.WorkflowResult{Success: true, State: serviceresponse.StateDone}},
			wantStatus:  http.StatusOK,
			wantTrigger: "http",
		},
		{
			name:        "reference time and trigger",
			method:      http.MethodPost,
			body:        `{"reference_time":"2024-03-10T09:00:00+01:00","trigger":"manual"}`,
			queue:       &fakeQueue{result: serviceresponse.WorkflowResult{Success: true}},
			wantStatus:  http.StatusOK,
			wantTrigger: "manual",
			wantRefTime: true,
		},
		{
			name:       "failed run",
			method:     http.MethodPost,
			body:       `{}`,
			queue:      &fakeQueue{result: serviceresponse.WorkflowResult{Success: false, State: serviceresponse.StateFailed}},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid json",
			method:     http.MethodPost,
			body:       `{"reference_time":`,
			queue:      &fakeQueue{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid reference time",
			method:     http.MethodPost,
			body:       `{"reference_time":"2024-03-10"}`,
			queue:      &fakeQueue{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "queue full",
			method:     http.MethodPost,
			body:       `{}`,
			queue:      &fakeQueue{err: worker.ErrQueueFull},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "queue stopped",
			method:     http.MethodPost,
			body:       `{}`,
			queue:      &fakeQueue{err: worker.ErrQueueStopped},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			queue:      &fakeQueue{},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRunHandler(tc.queue)
			req := httptest.NewRequest(tc.method, "/run", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.Run(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantTrigger != "" {
				require.NotNil(t, tc.queue.got)
				assert.Equal(t, tc.wantTrigger, tc.queue.got.Trigger)
				assert.Equal(t, tc.wantRefTime, tc.queue.got.ReferenceTime != nil)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRunHandler_TimeoutWaitingForResult(t *testing.T) {
	h := NewRunHandler(&fakeQueue{block: true})
	h.timeout = 10 * time.Millisecond

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

type fakeStatus struct {
	at time.Time
}

func (f *fakeStatus) Status(now time.Time) serviceresponse.SystemStatus {
	f.at = now
	return serviceresponse.SystemStatus{Timezone: "Europe/Madrid", CurrentlyOperational: true}
}

func TestStatusHandler(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	provider := &fakeStatus{}
	h := NewStatusHandler(provider, clock.NewFixed(now))

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, provider.at.Equal(now))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Europe/Madrid", body["timezone"])
	assert.Equal(t, true, body["currently_operational"])
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, ServiceName, body.Service)
}

func TestWithLogging_PropagatesTraceID(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "cloud run header", header: "105445aa7843bc8bf206b12000100000/1;o=1", want: "105445aa7843bc8bf206b12000100000"},
		{name: "header without span", header: "abc123", want: "abc123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				got = logging.TraceID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			req.Header.Set("X-Cloud-Trace-Context", tc.header)
			handler(httptest.NewRecorder(), req)

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWithLogging_GeneratesTraceID(t *testing.T) {
	var got string
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		got = logging.TraceID(r.Context())
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, got)
}

func TestNewMux_Routes(t *testing.T) {
	mux := NewMux(
		NewRunHandler(&fakeQueue{result: serviceresponse.WorkflowResult{Success: true}}),
		NewStatusHandler(&fakeStatus{}, clock.NewFixed(time.Now())),
	)

	for _, path := range []string{"/health", "/status"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
