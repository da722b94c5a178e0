package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/brandlens/mentions-sync/internal/config"
	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport sends a sync run summary via configured notification channels
func (s *Service) SendReport(report *models.SyncReport) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent sync report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent sync report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.SyncReport) error {
	message := buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func subject(report *models.SyncReport) string {
	if failed := report.FailedBindings(); len(failed) > 0 {
		return fmt.Sprintf("Mentions Sync - %d of %d bindings failed", len(failed), len(report.Bindings))
	}
	if report.Metrics.Errors > 0 {
		return fmt.Sprintf("Mentions Sync - completed with %d errors", report.Metrics.Errors)
	}
	return fmt.Sprintf("Mentions Sync - %d new comments", report.Metrics.Persisted)
}

func metricFacts(metrics models.SyncMetrics) []TeamsFact {
	return []TeamsFact{
		{Name: "Fetched", Value: fmt.Sprintf("%d", metrics.Fetched)},
		{Name: "Linked", Value: fmt.Sprintf("%d", metrics.Linked)},
		{Name: "Persisted", Value: fmt.Sprintf("%d", metrics.Persisted)},
		{Name: "Deduped", Value: fmt.Sprintf("%d", metrics.Deduped)},
		{Name: "Feed persisted", Value: fmt.Sprintf("%d", metrics.FeedPersisted)},
		{Name: "Skipped (unlinked)", Value: fmt.Sprintf("%d", metrics.SkippedUnlinked)},
		{Name: "Skipped (no URL)", Value: fmt.Sprintf("%d", metrics.SkippedNoURL)},
		{Name: "Flagged spam", Value: fmt.Sprintf("%d", metrics.FlaggedSpam)},
		{Name: "Errors", Value: fmt.Sprintf("%d", metrics.Errors)},
	}
}

func buildTeamsMessage(report *models.SyncReport) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "107c10",
		Title:      subject(report),
		Text: fmt.Sprintf("Synced %d bindings between %s and %s in %s",
			len(report.Bindings),
			report.Since.Format("2006-01-02 15:04"),
			report.Until.Format("2006-01-02 15:04"),
			report.Duration),
	}
	if report.Metrics.Errors > 0 {
		message.ThemeColor = "d13438"
	}

	facts := append([]TeamsFact{
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}, metricFacts(report.Metrics)...)

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if failed := report.FailedBindings(); len(failed) > 0 {
		var lines []string
		for _, binding := range failed {
			lines = append(lines, fmt.Sprintf("**%s** (alert %s) stopped after %d pages: %s",
				binding.BindingID, binding.AlertID, binding.PagesProcessed, binding.Error))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Failed Bindings",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.SyncReport) error {
	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject(report))
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Mentions Sync Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .binding { border-left: 4px solid #107c10; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .failed { border-left-color: #d13438; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Mentions Sync Report</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}} in {{.Duration}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Fetched:</strong> {{.Metrics.Fetched}} | <strong>Linked:</strong> {{.Metrics.Linked}}</p>
        <p><strong>Persisted:</strong> {{.Metrics.Persisted}} | <strong>Deduped:</strong> {{.Metrics.Deduped}}</p>
        <p><strong>Flagged spam:</strong> {{.Metrics.FlaggedSpam}} | <strong>Errors:</strong> {{.Metrics.Errors}}</p>
    </div>

    {{if .Bindings}}
    <h2>Bindings</h2>
    {{range .Bindings}}
        <div class="binding{{if .Error}} failed{{end}}">
            <strong>{{.BindingID}}</strong>
            <div class="meta">Alert {{.AlertID}} | {{.PagesProcessed}} pages | completed: {{.Completed}}</div>
            {{if .Error}}<p>{{.Error}}</p>{{end}}
        </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by mentions-sync.</small></p>
</body>
</html>
`))

func buildEmailHTML(report *models.SyncReport) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(report *models.SyncReport) string {
	var text strings.Builder

	text.WriteString(subject(report) + "\n")
	text.WriteString(fmt.Sprintf("Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Window: %s - %s\n\n",
		report.Since.Format(time.RFC3339), report.Until.Format(time.RFC3339)))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	for _, fact := range metricFacts(report.Metrics) {
		text.WriteString(fmt.Sprintf("%s: %s\n", fact.Name, fact.Value))
	}

	if failed := report.FailedBindings(); len(failed) > 0 {
		text.WriteString("\nFAILED BINDINGS\n")
		text.WriteString("===============\n")
		for i, binding := range failed {
			text.WriteString(fmt.Sprintf("\n%d. %s (alert %s)\n", i+1, binding.BindingID, binding.AlertID))
			text.WriteString(fmt.Sprintf("   Pages: %d | Resume cursor: %s\n", binding.PagesProcessed, binding.NextCursor))
			text.WriteString(fmt.Sprintf("   Error: %s\n", binding.Error))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by mentions-sync.\n")

	return text.String()
}
