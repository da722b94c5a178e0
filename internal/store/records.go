package store

import (
	"encoding/json"
	"time"

	"github.com/brandlens/mentions-sync/internal/models"
	"gorm.io/datatypes"
)

// TrackedPost is a post the product already follows; mentions are linked against it
type TrackedPost struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	Channel        string    `gorm:"type:varchar(20);not null;index:idx_tracked_posts_external,priority:1;index:idx_tracked_posts_url,priority:1"`
	ExternalPostID string    `gorm:"type:text;index:idx_tracked_posts_external,priority:2"`
	NormalizedURL  string    `gorm:"type:text;index:idx_tracked_posts_url,priority:2"`
	Text           string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TrackedPost) TableName() string {
	return "tracked_posts"
}

// MentionComment is a provider mention linked to a tracked post
type MentionComment struct {
	ID                     string         `gorm:"primaryKey;type:uuid"`
	Provider               string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_mention_comments_identity,priority:1"`
	ExternalMentionID      string         `gorm:"type:text;not null;uniqueIndex:idx_mention_comments_identity,priority:2"`
	BindingID              string         `gorm:"type:text;not null;index"`
	AlertID                string         `gorm:"type:text;not null"`
	PostID                 string         `gorm:"type:uuid;not null;index"`
	Channel                string         `gorm:"type:varchar(20);not null"`
	ParentExternalPostID   string         `gorm:"type:text"`
	ExternalCommentID      *string        `gorm:"type:text"`
	ExternalReplyCommentID *string        `gorm:"type:text"`
	URL                    string         `gorm:"type:text"`
	AuthorName             string         `gorm:"type:text"`
	AuthorExternalID       string         `gorm:"type:text"`
	Text                   string         `gorm:"type:text"`
	PublishedAt            *time.Time     `gorm:"type:timestamptz"`
	Sentiment              string         `gorm:"type:varchar(20)"`
	SentimentSource        string         `gorm:"type:varchar(20)"`
	Classification         datatypes.JSON `gorm:"type:jsonb"`
	IsSpam                 bool           `gorm:"not null;default:false"`
	RelatedToPostText      bool           `gorm:"not null;default:false"`
	NeedsReview            bool           `gorm:"not null;default:false;index"`
	RawPayload             datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt              time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (MentionComment) TableName() string {
	return "mention_comments"
}

// FeedItem is a mention mirrored into the generic content feed of a profile
type FeedItem struct {
	ID                string         `gorm:"primaryKey;type:uuid"`
	BindingID         string         `gorm:"type:text;not null;uniqueIndex:idx_feed_items_identity,priority:1"`
	AlertID           string         `gorm:"type:text;not null;uniqueIndex:idx_feed_items_identity,priority:2"`
	ExternalMentionID string         `gorm:"type:text;not null;uniqueIndex:idx_feed_items_identity,priority:3"`
	CanonicalURL      string         `gorm:"type:text;not null;uniqueIndex:idx_feed_items_identity,priority:4"`
	ProfileID         string         `gorm:"type:text;not null;index"`
	Channel           string         `gorm:"type:varchar(20)"`
	Title             string         `gorm:"type:text"`
	Text              string         `gorm:"type:text"`
	AuthorName        string         `gorm:"type:text"`
	PublishedAt       *time.Time     `gorm:"type:timestamptz"`
	RawPayload        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (FeedItem) TableName() string {
	return "feed_items"
}

// MentionBinding is the persisted form of models.Binding
type MentionBinding struct {
	ID        string    `gorm:"primaryKey;type:text"`
	AlertID   string    `gorm:"type:text;not null"`
	ProfileID *string   `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MentionBinding) TableName() string {
	return "mention_bindings"
}

// SyncState keeps the resumable cursor of one binding
type SyncState struct {
	BindingID     string     `gorm:"primaryKey;type:text"`
	Cursor        *string    `gorm:"type:text"`
	Completed     bool       `gorm:"not null;default:false"`
	LastAttemptAt *time.Time `gorm:"type:timestamptz"`
	LastSuccessAt *time.Time `gorm:"type:timestamptz"`
}

func (SyncState) TableName() string {
	return "mention_sync_state"
}

func toBinding(record MentionBinding) models.Binding {
	return models.Binding{
		ID:        record.ID,
		AlertID:   record.AlertID,
		ProfileID: record.ProfileID,
		Status:    record.Status,
	}
}

func toCommentRecord(id string, comment models.CommentInput) (MentionComment, error) {
	classification, err := json.Marshal(comment.Classification)
	if err != nil {
		return MentionComment{}, err
	}

	return MentionComment{
		ID:                     id,
		Provider:               comment.Provider,
		ExternalMentionID:      comment.ExternalMentionID,
		BindingID:              comment.BindingID,
		AlertID:                comment.AlertID,
		PostID:                 comment.PostID,
		Channel:                string(comment.Channel),
		ParentExternalPostID:   comment.ParentExternalPostID,
		ExternalCommentID:      optional(comment.ExternalCommentID),
		ExternalReplyCommentID: optional(comment.ExternalReplyCommentID),
		URL:                    comment.URL,
		AuthorName:             comment.AuthorName,
		AuthorExternalID:       comment.AuthorExternalID,
		Text:                   comment.Text,
		PublishedAt:            comment.PublishedAt,
		Sentiment:              comment.Classification.Sentiment,
		SentimentSource:        comment.Classification.SentimentSource,
		Classification:         datatypes.JSON(classification),
		IsSpam:                 comment.Classification.IsSpam,
		RelatedToPostText:      comment.Classification.RelatedToPostText,
		NeedsReview:            comment.Classification.NeedsReview,
		RawPayload:             rawJSON(comment.RawPayload),
	}, nil
}

func toFeedRecord(id string, item models.FeedItemInput) FeedItem {
	return FeedItem{
		ID:                id,
		BindingID:         item.BindingID,
		AlertID:           item.AlertID,
		ExternalMentionID: item.ExternalMentionID,
		CanonicalURL:      item.CanonicalURL,
		ProfileID:         item.ProfileID,
		Channel:           string(item.Channel),
		Title:             item.Title,
		Text:              item.Text,
		AuthorName:        item.AuthorName,
		PublishedAt:       item.PublishedAt,
		RawPayload:        rawJSON(item.RawPayload),
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func rawJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || !json.Valid(raw) {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
