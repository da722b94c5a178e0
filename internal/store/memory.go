package store

import (
	"context"
	"sort"
	"sync"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/google/uuid"
)

type commentKey struct {
	provider          string
	externalMentionID string
}

type feedKey struct {
	bindingID         string
	alertID           string
	externalMentionID string
	canonicalURL      string
}

type postKey struct {
	channel models.Channel
	// external post id or normalized URL
	value string
}

type cursorState struct {
	cursor    string
	completed bool
}

// MemoryStore is an in-process Store used when no database is configured and in tests
type MemoryStore struct {
	mu       sync.RWMutex
	posts    map[postKey]models.PostMatch
	postURLs map[postKey]models.PostMatch
	comments map[commentKey]models.UpsertResult
	feed     map[feedKey]models.UpsertResult
	bindings map[string]models.Binding
	cursors  map[string]cursorState

	// Stored rows, in insertion order
	Comments  []models.CommentInput
	FeedItems []models.FeedItemInput
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[postKey]models.PostMatch),
		postURLs: make(map[postKey]models.PostMatch),
		comments: make(map[commentKey]models.UpsertResult),
		feed:     make(map[feedKey]models.UpsertResult),
		bindings: make(map[string]models.Binding),
		cursors:  make(map[string]cursorState),
	}
}

// AddPost registers a tracked post under its external id and normalized URL
func (s *MemoryStore) AddPost(channel models.Channel, externalPostID, normalizedURL string, post models.PostMatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if externalPostID != "" {
		s.posts[postKey{channel: channel, value: externalPostID}] = post
	}
	if normalizedURL != "" {
		s.postURLs[postKey{channel: channel, value: normalizedURL}] = post
	}
}

// PutBinding inserts or replaces a binding
func (s *MemoryStore) PutBinding(binding models.Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[binding.ID] = binding
}

func (s *MemoryStore) ResolvePostMatch(ctx context.Context, channel models.Channel, parentExternalPostID, normalizedParentURL string) (*models.PostMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if parentExternalPostID != "" {
		if post, ok := s.posts[postKey{channel: channel, value: parentExternalPostID}]; ok {
			return &post, nil
		}
	}
	if normalizedParentURL != "" {
		if post, ok := s.postURLs[postKey{channel: channel, value: normalizedParentURL}]; ok {
			return &post, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) UpsertComment(ctx context.Context, comment models.CommentInput) (models.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return models.UpsertResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := commentKey{provider: comment.Provider, externalMentionID: comment.ExternalMentionID}
	if existing, ok := s.comments[key]; ok {
		return models.UpsertResult{Status: models.UpsertDeduped, ID: existing.ID}, nil
	}

	result := models.UpsertResult{Status: models.UpsertPersisted, ID: uuid.NewString()}
	s.comments[key] = result
	s.Comments = append(s.Comments, comment)
	return result, nil
}

func (s *MemoryStore) UpsertFeedItem(ctx context.Context, item models.FeedItemInput) (models.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return models.UpsertResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := feedKey{
		bindingID:         item.BindingID,
		alertID:           item.AlertID,
		externalMentionID: item.ExternalMentionID,
		canonicalURL:      item.CanonicalURL,
	}
	if existing, ok := s.feed[key]; ok {
		return models.UpsertResult{Status: models.UpsertDeduped, ID: existing.ID}, nil
	}

	result := models.UpsertResult{Status: models.UpsertPersisted, ID: uuid.NewString()}
	s.feed[key] = result
	s.FeedItems = append(s.FeedItems, item)
	return result, nil
}

func (s *MemoryStore) ListBindings(ctx context.Context) ([]models.Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bindings := make([]models.Binding, 0, len(s.bindings))
	for _, binding := range s.bindings {
		bindings = append(bindings, binding)
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].ID < bindings[j].ID
	})
	return bindings, nil
}

func (s *MemoryStore) GetBinding(ctx context.Context, id string) (*models.Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, ok := s.bindings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &binding, nil
}

func (s *MemoryStore) LoadCursor(ctx context.Context, bindingID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.cursors[bindingID]
	if !ok || state.completed {
		return "", nil
	}
	return state.cursor, nil
}

func (s *MemoryStore) SaveCursor(ctx context.Context, bindingID, cursor string, completed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[bindingID] = cursorState{cursor: cursor, completed: completed}
	return nil
}
