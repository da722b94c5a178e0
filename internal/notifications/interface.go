package notifications

import "github.com/brandlens/mentions-sync/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendReport(report *models.SyncReport) error
}
