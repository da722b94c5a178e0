package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brandlens/mentions-sync/internal/config"
	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *models.SyncReport {
	generated := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	return &models.SyncReport{
		GeneratedAt: generated,
		Duration:    "2.5s",
		Since:       generated.Add(-24 * time.Hour),
		Until:       generated,
		Metrics:     models.SyncMetrics{Fetched: 12, Linked: 7, Persisted: 5, Deduped: 2, Errors: 1},
		Bindings: []models.BindingReport{
			{BindingID: "b1", AlertID: "a1", PagesProcessed: 3, Completed: true},
			{BindingID: "b2", AlertID: "a2", PagesProcessed: 2, NextCursor: "cur-2", Error: "sync binding b2: provider unavailable"},
		},
	}
}

func TestBuildTeamsMessage(t *testing.T) {
	message := buildTeamsMessage(sampleReport())

	assert.Equal(t, "MessageCard", message.Type)
	assert.Equal(t, "Mentions Sync - 1 of 2 bindings failed", message.Title)
	assert.Equal(t, "d13438", message.ThemeColor)
	require.Len(t, message.Sections, 2)
	assert.Equal(t, "Summary", message.Sections[0].ActivityTitle)
	assert.Contains(t, message.Sections[0].Facts, TeamsFact{Name: "Persisted", Value: "5"})
	assert.Contains(t, message.Sections[1].ActivityText, "**b2**")
}

func TestBuildTeamsMessage_CleanRun(t *testing.T) {
	report := sampleReport()
	report.Metrics.Errors = 0
	report.Bindings = report.Bindings[:1]

	message := buildTeamsMessage(report)

	assert.Equal(t, "Mentions Sync - 5 new comments", message.Title)
	assert.Equal(t, "107c10", message.ThemeColor)
	assert.Len(t, message.Sections, 1)
}

func TestBuildEmailBodies(t *testing.T) {
	report := sampleReport()

	html, err := buildEmailHTML(report)
	require.NoError(t, err)
	assert.Contains(t, html, "Mentions Sync Report")
	assert.Contains(t, html, `class="binding failed"`)
	assert.Contains(t, html, "provider unavailable")

	text := buildEmailText(report)
	assert.Contains(t, text, "Fetched: 12")
	assert.Contains(t, text, "Resume cursor: cur-2")
}

func TestService_SendReport_Teams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	require.NoError(t, service.SendReport(sampleReport()))
	assert.Equal(t, "Mentions Sync - 1 of 2 bindings failed", received.Title)
}

func TestService_SendReport_TeamsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	err := service.SendReport(sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams webhook returned status 400")
}
