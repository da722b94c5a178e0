package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore implements Store on top of PostgreSQL
type GormStore struct {
	db *gorm.DB
}

// Ensure GormStore implements Store
var _ Store = (*GormStore)(nil)

// NewGormStore opens the database, checks connectivity and migrates the schema
func NewGormStore(ctx context.Context, databaseURL string, debug bool) (*GormStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := openGormStore(ctx, db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logrus.Info("Database connection established")
	return store, nil
}

// openGormStore wraps an open connection and migrates the schema
func openGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	store := &GormStore{db: db}
	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}
	return store, nil
}

func (s *GormStore) migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&TrackedPost{},
		&MentionComment{},
		&FeedItem{},
		&MentionBinding{},
		&SyncState{},
	)
}

// Close releases the connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ResolvePostMatch looks a post up by external id first, then by normalized URL. Both
// lookups are scoped to the channel.
func (s *GormStore) ResolvePostMatch(ctx context.Context, channel models.Channel, parentExternalPostID, normalizedParentURL string) (*models.PostMatch, error) {
	db := s.db.WithContext(ctx)

	if parentExternalPostID != "" {
		var post TrackedPost
		err := db.Where("channel = ? AND external_post_id = ?", string(channel), parentExternalPostID).First(&post).Error
		if err == nil {
			return &models.PostMatch{PostID: post.ID, PostText: post.Text}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resolve post by id: %w", err)
		}
	}

	if normalizedParentURL != "" {
		var post TrackedPost
		err := db.Where("channel = ? AND normalized_url = ?", string(channel), normalizedParentURL).First(&post).Error
		if err == nil {
			return &models.PostMatch{PostID: post.ID, PostText: post.Text}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resolve post by url: %w", err)
		}
	}

	return nil, nil
}

// UpsertComment inserts the comment unless one with the same provider identity exists
func (s *GormStore) UpsertComment(ctx context.Context, comment models.CommentInput) (models.UpsertResult, error) {
	record, err := toCommentRecord(uuid.NewString(), comment)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("encode classification: %w", err)
	}

	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "external_mention_id"}},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return models.UpsertResult{}, fmt.Errorf("insert mention comment: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return models.UpsertResult{Status: models.UpsertPersisted, ID: record.ID}, nil
	}

	var existing MentionComment
	if err := db.Select("id").
		Where("provider = ? AND external_mention_id = ?", comment.Provider, comment.ExternalMentionID).
		First(&existing).Error; err != nil {
		return models.UpsertResult{}, fmt.Errorf("load existing mention comment: %w", err)
	}
	return models.UpsertResult{Status: models.UpsertDeduped, ID: existing.ID}, nil
}

// UpsertFeedItem inserts the feed item unless the same identity tuple exists
func (s *GormStore) UpsertFeedItem(ctx context.Context, item models.FeedItemInput) (models.UpsertResult, error) {
	record := toFeedRecord(uuid.NewString(), item)

	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "binding_id"}, {Name: "alert_id"}, {Name: "external_mention_id"}, {Name: "canonical_url"},
		},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return models.UpsertResult{}, fmt.Errorf("insert feed item: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return models.UpsertResult{Status: models.UpsertPersisted, ID: record.ID}, nil
	}

	var existing FeedItem
	if err := db.Select("id").
		Where("binding_id = ? AND alert_id = ? AND external_mention_id = ? AND canonical_url = ?",
			item.BindingID, item.AlertID, item.ExternalMentionID, item.CanonicalURL).
		First(&existing).Error; err != nil {
		return models.UpsertResult{}, fmt.Errorf("load existing feed item: %w", err)
	}
	return models.UpsertResult{Status: models.UpsertDeduped, ID: existing.ID}, nil
}

// ListBindings returns every binding ordered by id
func (s *GormStore) ListBindings(ctx context.Context) ([]models.Binding, error) {
	var records []MentionBinding
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}

	bindings := make([]models.Binding, 0, len(records))
	for _, record := range records {
		bindings = append(bindings, toBinding(record))
	}
	return bindings, nil
}

// GetBinding returns ErrNotFound when the id is unknown
func (s *GormStore) GetBinding(ctx context.Context, id string) (*models.Binding, error) {
	var record MentionBinding
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get binding %s: %w", id, err)
	}

	binding := toBinding(record)
	return &binding, nil
}

// LoadCursor returns an empty cursor for unknown or completed bindings
func (s *GormStore) LoadCursor(ctx context.Context, bindingID string) (string, error) {
	var state SyncState
	err := s.db.WithContext(ctx).Where("binding_id = ?", bindingID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load cursor for %s: %w", bindingID, err)
	}
	if state.Completed || state.Cursor == nil {
		return "", nil
	}
	return *state.Cursor, nil
}

// SaveCursor records where a binding stopped
func (s *GormStore) SaveCursor(ctx context.Context, bindingID, cursor string, completed bool) error {
	now := time.Now().UTC()
	state := SyncState{
		BindingID:     bindingID,
		Cursor:        optional(cursor),
		Completed:     completed,
		LastAttemptAt: &now,
	}
	columns := []string{"cursor", "completed", "last_attempt_at"}
	if completed {
		state.LastSuccessAt = &now
		columns = append(columns, "last_success_at")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "binding_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("save cursor for %s: %w", bindingID, err)
	}
	return nil
}
