package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:        baseURL,
		AccessToken:    "secret-token",
		MaxAttempts:    3,
		BackoffBase:    time.Millisecond,
		RequestTimeout: 2 * time.Second,
	})
}

func TestClient_ListAlerts_EnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "Top-level alerts",
			body: `{"alerts":[{"id":"a1","name":"Brand","status":"active"},{"id":"a2","status":"disabled"}]}`,
		},
		{
			name: "Nested under data",
			body: `{"data":{"alerts":[{"id":"a1","name":"Brand"},{"id":"a2","is_active":false}]}}`,
		},
		{
			name: "Nested under alert_data",
			body: `{"alert_data":{"alerts":[{"id":"a1","title":"Brand","active":true},{"id":"a2","status":"INACTIVE"},{"name":"no id"}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/accounts/acc-1/alerts", r.URL.Path)
				assert.Equal(t, "secret-token", r.URL.Query().Get("access_token"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			client.opts.AccountID = "acc-1"

			alerts, err := client.ListAlerts(context.Background())
			require.NoError(t, err)
			require.Len(t, alerts, 2)
			assert.Equal(t, "a1", alerts[0].ID)
			assert.Equal(t, "Brand", alerts[0].Name)
			assert.True(t, alerts[0].IsActive)
			assert.Equal(t, "a2", alerts[1].ID)
			assert.False(t, alerts[1].IsActive)
		})
	}
}

func TestClient_ListAlerts_NumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[{"id":1234567,"name":"Numeric"}]}`))
	}))
	defer server.Close()

	alerts, err := newTestClient(server.URL).ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "1234567", alerts[0].ID)
}

func TestClient_ListMentionsPage_FreshQuery(t *testing.T) {
	since := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "/alerts/alert-9/mentions", r.URL.Path)
		assert.Equal(t, "2026-09-01T00:00:00Z", query.Get("since"))
		assert.Equal(t, "2026-09-30T00:00:00Z", query.Get("until"))
		assert.Equal(t, "50", query.Get("limit"))
		assert.Equal(t, "opaque-123", query.Get("cursor"))
		assert.Equal(t, "secret-token", query.Get("access_token"))
		w.Write([]byte(`{"mentions":[{"id":"m1"},{"id":"m2"},"not-an-object"],"next":"opaque-456"}`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).ListMentionsPage(context.Background(), "alert-9", PageOptions{
		Cursor: "opaque-123",
		Since:  since,
		Until:  until,
		Limit:  50,
	})
	require.NoError(t, err)
	require.Len(t, page.Mentions, 2)
	assert.Equal(t, "m1", page.Mentions[0].ID())
	assert.Equal(t, "opaque-456", page.Next)
}

func TestClient_ListMentionsPage_URLCursorUsedVerbatim(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "/provider/next", r.URL.Path)
		assert.Equal(t, "abc", query.Get("before_id"))
		assert.Equal(t, "secret-token", query.Get("access_token"))
		assert.Empty(t, query.Get("since"))
		w.Write([]byte(`{"alert_data":{"mentions":[{"id":"m3"}],"_links":{"more":{"href":"` + server.URL + `/provider/next?before_id=def"}}}}`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).ListMentionsPage(context.Background(), "alert-9", PageOptions{
		Cursor: server.URL + "/provider/next?before_id=abc&access_token=stale",
		Since:  time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, page.Mentions, 1)
	assert.Equal(t, server.URL+"/provider/next?before_id=def", page.Next)
}

func TestClient_ListMentionsPage_NullNextEndsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mentions":[],"next":null}`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).ListMentionsPage(context.Background(), "a", PageOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Mentions)
	assert.Empty(t, page.Next)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`{"alerts":[{"id":"a1"}]}`))
		}
	}))
	defer server.Close()

	alerts, err := newTestClient(server.URL).ListAlerts(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListMentionsPage(context.Background(), "alert-1", PageOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Contains(t, err.Error(), "/alerts/alert-1/mentions")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestClient_TerminalFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "Not found",
			status: http.StatusNotFound,
			body:   `{"error":"unknown alert"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
				assert.False(t, errors.Is(err, ErrRetriesExhausted))
			},
		},
		{
			name:   "Array body",
			status: http.StatusOK,
			body:   `[1,2,3]`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidPayload))
			},
		},
		{
			name:   "HTML body",
			status: http.StatusOK,
			body:   `<html>maintenance</html>`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidPayload))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).ListAlerts(context.Background())
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_PerAttemptTimeoutIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.Write([]byte(`{"alerts":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.opts.RequestTimeout = 50 * time.Millisecond

	alerts, err := client.ListAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_CallerCancellationStopsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.opts.BackoffBase = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.ListAlerts(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ThrottleSpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[]}`))
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:     server.URL,
		AccessToken: "t",
		MinInterval: 80 * time.Millisecond,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.ListAlerts(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestIsURLCursor(t *testing.T) {
	assert.True(t, isURLCursor("https://api.example.com/next"))
	assert.True(t, isURLCursor("HTTP://api.example.com/next"))
	assert.False(t, isURLCursor("eyJwYWdlIjoyfQ=="))
	assert.False(t, isURLCursor(""))
}
