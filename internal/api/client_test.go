package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Holded: config.Holded{APIKey: "test-key", BaseURL: baseURL, TimeoutSeconds: 5},
		Retry:  config.Retry{Attempts: 3, BaseDelayMS: 1},
	}
}

func TestNewHoldedClient_RequiresKey(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Holded.APIKey = ""

	_, err := NewHoldedClient(cfg, zap.NewNop())

	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestFetchOrders_SendsWindowAndKey(t *testing.T) {
	start := time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/salesorder", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "1709974800", r.URL.Query().Get("starttmp"))
		assert.Equal(t, "1710061200", r.URL.Query().Get("endtmp"))
		_, _ = w.Write([]byte(`[{"id":"A","docNumber":"SO-1","products":[{"name":"Conway EMR627"}]}]`))
	}))
	defer server.Close()

	client, err := NewHoldedClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	orders, err := client.FetchOrders(context.Background(), start, end)

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "A", orders[0].ID)
	assert.Equal(t, "Conway EMR627", orders[0].Items[0].Name)
}

func TestDecodeOrders(t *testing.T) {
	testCases := []struct {
		name          string
		body          string
		wantIDs       []string
		wantMalformed int
		wantErr       bool
	}{
		{name: "array", body: `[{"id":"A"},{"id":"B"}]`, wantIDs: []string{"A", "B"}},
		{name: "data wrapper", body: `{"data":[{"id":"A"}]}`, wantIDs: []string{"A"}},
		{name: "documents wrapper", body: `{"documents":[{"id":"B"}]}`, wantIDs: []string{"B"}},
		{name: "single document", body: `{"id":"C"}`, wantIDs: []string{"C"}},
		{name: "null data", body: `{"data":null}`, wantIDs: []string{}},
		{name: "empty body", body: ``, wantIDs: []string{}},
		{name: "not json", body: `<html>`, wantErr: true},
		{name: "products not a list", body: `[{"id":"A"},{"id":"B","products":"oops"}]`, wantIDs: []string{"A", "B"}},
		{name: "scalar element", body: `[{"id":"A"},"garbage",42,null,{"id":"D"}]`, wantIDs: []string{"A", "D"}, wantMalformed: 3},
		{name: "wrapped bad element", body: `{"data":[["x"],{"id":"E"}]}`, wantIDs: []string{"E"}, wantMalformed: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			orders, malformed, err := decodeOrders([]byte(tc.body))

			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(orders))
			for _, o := range orders {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, tc.wantMalformed, malformed)
		})
	}
}

func TestFetchOrders_MalformedOrderDoesNotDropBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"A","products":[{"name":"Conway EMR627"}]},
			{"id":"B","products":"oops"},
			{"id":"C","products":["x",{"sku":"EMR627"}]},
			"garbage"
		]`))
	}))
	defer server.Close()

	client, err := NewHoldedClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	orders, err := client.FetchOrders(context.Background(), time.Now().Add(-time.Hour), time.Now())

	require.Error(t, err)
	assert.Equal(t, apperrors.KindDataQuality, apperrors.KindOf(err))
	assert.Equal(t, 1, apperrors.MalformedCount(err))

	require.Len(t, orders, 3)
	assert.Equal(t, "Conway EMR627", orders[0].Items[0].Name)
	assert.Empty(t, orders[1].Items)
	assert.Equal(t, 1, orders[1].MalformedItems)
	require.Len(t, orders[2].Items, 1)
	assert.Equal(t, "EMR627", orders[2].Items[0].SKU)
	assert.Equal(t, 1, orders[2].MalformedItems)
}

func TestFetchOrders_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client, err := NewHoldedClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	orders, err := client.FetchOrders(context.Background(), time.Now().Add(-time.Hour), time.Now())

	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchOrders_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewHoldedClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.FetchOrders(context.Background(), time.Now().Add(-time.Hour), time.Now())

	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternal, apperrors.KindOf(err))
	assert.False(t, apperrors.IsRetryable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTestConnection(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "forbidden", status: http.StatusForbidden, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`[]`))
			}))
			defer server.Close()

			client, err := NewHoldedClient(testConfig(server.URL), zap.NewNop())
			require.NoError(t, err)

			err = client.TestConnection(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
