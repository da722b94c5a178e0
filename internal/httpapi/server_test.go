package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/brandlens/mentions-sync/internal/monitoring"
	"github.com/brandlens/mentions-sync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) GetMetrics() string {
	return m.Called().String(0)
}

func (m *MockSyncService) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	args := m.Called(ctx)
	alerts, _ := args.Get(0).([]models.Alert)
	return alerts, args.Error(1)
}

func (m *MockSyncService) StartScheduledSync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSyncService) SyncBindingByID(ctx context.Context, bindingID string, in monitoring.SyncBindingInput) (monitoring.SyncBindingResult, error) {
	args := m.Called(ctx, bindingID, in)
	return args.Get(0).(monitoring.SyncBindingResult), args.Error(1)
}

func (m *MockSyncService) ListReports(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockSyncService) GetReport(ctx context.Context, name string) (*models.SyncReport, error) {
	args := m.Called(ctx, name)
	report, _ := args.Get(0).(*models.SyncReport)
	return report, args.Error(1)
}

func serve(t *testing.T, service SyncService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(context.Background(), service)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := serve(t, &MockSyncService{}, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestServer_Metrics(t *testing.T) {
	service := &MockSyncService{}
	service.On("GetMetrics").Return(`{"runs":2}`)

	rec := serve(t, service, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":2}`, rec.Body.String())
}

func TestServer_Alerts(t *testing.T) {
	service := &MockSyncService{}
	service.On("ListAlerts", mock.Anything).Return([]models.Alert{{ID: "a1", Name: "Brand", IsActive: true}}, nil).Once()
	service.On("ListAlerts", mock.Anything).Return(nil, errors.New("provider down")).Once()

	rec := serve(t, service, http.MethodGet, "/alerts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"a1","name":"Brand","is_active":true}]`, rec.Body.String())

	rec = serve(t, service, http.MethodGet, "/alerts", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Trigger(t *testing.T) {
	service := &MockSyncService{}
	service.On("StartScheduledSync", mock.Anything).Return(nil).Once()
	service.On("StartScheduledSync", mock.Anything).Return(monitoring.ErrSyncInProgress).Once()

	rec := serve(t, service, http.MethodPost, "/sync", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(t, service, http.MethodPost, "/sync", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "sync already running")

	service.AssertNumberOfCalls(t, "StartScheduledSync", 2)
}

func TestServer_SyncBinding(t *testing.T) {
	since := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	expected := monitoring.SyncBindingInput{Cursor: "c2", Since: since, MaxPages: 3}
	result := monitoring.SyncBindingResult{
		Metrics:        models.SyncMetrics{Fetched: 4, Linked: 2, Persisted: 2},
		NextCursor:     "c5",
		PagesProcessed: 3,
	}

	service := &MockSyncService{}
	service.On("SyncBindingByID", mock.Anything, "b1", expected).Return(result, nil)

	body := fmt.Sprintf(`{"cursor":"c2","since":%q,"max_pages":3}`, since.Format(time.RFC3339))
	rec := serve(t, service, http.MethodPost, "/bindings/b1/sync", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var got monitoring.SyncBindingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, result, got)
}

func TestServer_SyncBindingEmptyBody(t *testing.T) {
	service := &MockSyncService{}
	service.On("SyncBindingByID", mock.Anything, "b1", monitoring.SyncBindingInput{}).
		Return(monitoring.SyncBindingResult{Completed: true}, nil)

	rec := serve(t, service, http.MethodPost, "/bindings/b1/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SyncBindingErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{"Invalid JSON", `{"cursor":`, nil, http.StatusBadRequest},
		{"Negative caps", `{"max_pages":-1}`, nil, http.StatusBadRequest},
		{"Unknown binding", `{}`, fmt.Errorf("%w: b1", monitoring.ErrBindingNotFound), http.StatusNotFound},
		{"Hard failure", `{"hard_fail":true}`, errors.New("sync binding b1: retries exhausted"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockSyncService{}
			service.On("SyncBindingByID", mock.Anything, "b1", mock.Anything).
				Return(monitoring.SyncBindingResult{NextCursor: "c2"}, tt.err)

			rec := serve(t, service, http.MethodPost, "/bindings/b1/sync", tt.body)
			assert.Equal(t, tt.expected, rec.Code)
			if tt.expected == http.StatusBadGateway {
				assert.Contains(t, rec.Body.String(), `"next_cursor":"c2"`)
			}
		})
	}
}

func TestServer_Reports(t *testing.T) {
	name := "sync-runs/2026/10/01/120000.json"
	service := &MockSyncService{}
	service.On("ListReports", mock.Anything).Return([]string{name}, nil)
	service.On("GetReport", mock.Anything, name).Return(&models.SyncReport{Duration: "1s"}, nil)
	service.On("GetReport", mock.Anything, "sync-runs/missing.json").Return(nil, fmt.Errorf("%w: missing", storage.ErrNotFound))

	rec := serve(t, service, http.MethodGet, "/reports", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":["`+name+`"]}`, rec.Body.String())

	rec = serve(t, service, http.MethodGet, "/reports/"+name, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duration":"1s"`)

	rec = serve(t, service, http.MethodGet, "/reports/sync-runs/missing.json", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
