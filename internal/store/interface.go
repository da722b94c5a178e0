package store

import (
	"context"
	"errors"

	"github.com/brandlens/mentions-sync/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// PostResolver finds a known post for a mention. It has no side effects.
type PostResolver interface {
	// ResolvePostMatch returns nil, nil when no post matches
	ResolvePostMatch(ctx context.Context, channel models.Channel, parentExternalPostID, normalizedParentURL string) (*models.PostMatch, error)
}

// CommentStore persists linked mentions. Upserts with the same provider and
// external mention id must converge to a single row.
type CommentStore interface {
	UpsertComment(ctx context.Context, comment models.CommentInput) (models.UpsertResult, error)
}

// FeedStore mirrors mentions into the generic content feed, keyed by binding, alert,
// external mention id and canonical URL.
type FeedStore interface {
	UpsertFeedItem(ctx context.Context, item models.FeedItemInput) (models.UpsertResult, error)
}

// BindingStore reads alert bindings owned by configuration management
type BindingStore interface {
	ListBindings(ctx context.Context) ([]models.Binding, error)
	GetBinding(ctx context.Context, id string) (*models.Binding, error)
}

// CursorStore keeps the resumable cursor of each binding between runs
type CursorStore interface {
	LoadCursor(ctx context.Context, bindingID string) (string, error)
	SaveCursor(ctx context.Context, bindingID, cursor string, completed bool) error
}

// Store bundles every collaborator the sync service needs
type Store interface {
	PostResolver
	CommentStore
	FeedStore
	BindingStore
	CursorStore
}
