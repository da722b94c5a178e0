package storage

import (
	"context"
	"strings"
)

const (
	reportExt         = ".json"
	reportContentType = "application/json"
	reportKind        = "sync-report"
)

// StorageInterface archives sync run reports by name
type StorageInterface interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// IsReportName reports whether name can hold an archived report
func IsReportName(name string) bool {
	return strings.HasSuffix(name, reportExt) && len(name) > len(reportExt)
}
