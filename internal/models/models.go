package models

import (
	"encoding/json"
	"time"
)

// Channel is the social network a mention belongs to
type Channel string

const (
	ChannelFacebook  Channel = "facebook"
	ChannelInstagram Channel = "instagram"
	ChannelLinkedIn  Channel = "linkedin"
	ChannelTikTok    Channel = "tiktok"
	ChannelUnknown   Channel = "unknown"
)

// BindingStatusActive is the only status that is synced
const BindingStatusActive = "active"

// Binding links one provider alert to one internal tracking context
type Binding struct {
	ID        string  `json:"id"`
	AlertID   string  `json:"alert_id"`
	ProfileID *string `json:"profile_id,omitempty"`
	Status    string  `json:"status"`
}

// IsSyncable reports whether the binding should be synced at all
func (b Binding) IsSyncable() bool {
	return b.Status == BindingStatusActive && b.AlertID != ""
}

// FeedTarget returns the profile the binding mirrors mentions into, if any
func (b Binding) FeedTarget() string {
	if b.ProfileID == nil {
		return ""
	}
	return *b.ProfileID
}

// Alert is one provider alert as listed by the provider
type Alert struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentUnknown  = "unknown"
)

// Sentiment sources
const (
	SentimentSourceProvider = "provider"
	SentimentSourceModel    = "model_fallback"
)

// Classification is the locally derived verdict for one mention
type Classification struct {
	Sentiment                   string  `json:"sentiment"`
	SentimentSource             string  `json:"sentiment_source"`
	SentimentConfidence         float64 `json:"sentiment_confidence"`
	IsSpam                      bool    `json:"is_spam"`
	SpamConfidence              float64 `json:"spam_confidence"`
	RelatedToPostText           bool    `json:"related_to_post_text"`
	RelatedToPostTextConfidence float64 `json:"related_to_post_text_confidence"`
	Confidence                  float64 `json:"confidence"`
	NeedsReview                 bool    `json:"needs_review"`
}

// PostMatch is a known post a mention was resolved against
type PostMatch struct {
	PostID   string `json:"post_id"`
	PostText string `json:"post_text"`
}

// UpsertStatus is the outcome of an idempotent write
type UpsertStatus string

const (
	UpsertPersisted UpsertStatus = "persisted"
	UpsertDeduped   UpsertStatus = "deduped"
)

// UpsertResult reports what an idempotent write did
type UpsertResult struct {
	Status UpsertStatus `json:"status"`
	ID     string       `json:"id"`
}

// CommentInput carries every field persisted for one linked mention
type CommentInput struct {
	Provider               string          `json:"provider"`
	ExternalMentionID      string          `json:"external_mention_id"`
	BindingID              string          `json:"binding_id"`
	AlertID                string          `json:"alert_id"`
	PostID                 string          `json:"post_id"`
	Channel                Channel         `json:"channel"`
	ParentExternalPostID   string          `json:"parent_external_post_id"`
	ExternalCommentID      string          `json:"external_comment_id,omitempty"`
	ExternalReplyCommentID string          `json:"external_reply_comment_id,omitempty"`
	URL                    string          `json:"url,omitempty"`
	AuthorName             string          `json:"author_name,omitempty"`
	AuthorExternalID       string          `json:"author_external_id,omitempty"`
	Text                   string          `json:"text"`
	PublishedAt            *time.Time      `json:"published_at,omitempty"`
	Classification         Classification  `json:"classification"`
	RawPayload             json.RawMessage `json:"raw_payload"`
}

// FeedItemInput mirrors a mention into the generic content feed
type FeedItemInput struct {
	BindingID         string          `json:"binding_id"`
	AlertID           string          `json:"alert_id"`
	ProfileID         string          `json:"profile_id"`
	ExternalMentionID string          `json:"external_mention_id"`
	CanonicalURL      string          `json:"canonical_url"`
	Channel           Channel         `json:"channel"`
	Title             string          `json:"title,omitempty"`
	Text              string          `json:"text"`
	AuthorName        string          `json:"author_name,omitempty"`
	PublishedAt       *time.Time      `json:"published_at,omitempty"`
	RawPayload        json.RawMessage `json:"raw_payload"`
}

// SyncMetrics holds the counters of one sync run
type SyncMetrics struct {
	Fetched         int `json:"fetched"`
	Linked          int `json:"linked"`
	Persisted       int `json:"persisted"`
	Deduped         int `json:"deduped"`
	FeedPersisted   int `json:"feed_persisted"`
	FeedDeduped     int `json:"feed_deduped"`
	SkippedNoURL    int `json:"skipped_no_url"`
	SkippedUnlinked int `json:"skipped_unlinked"`
	FlaggedSpam     int `json:"flagged_spam"`
	FlaggedRelated  int `json:"flagged_related"`
	Errors          int `json:"errors"`
}

// Add accumulates other into m
func (m *SyncMetrics) Add(other SyncMetrics) {
	m.Fetched += other.Fetched
	m.Linked += other.Linked
	m.Persisted += other.Persisted
	m.Deduped += other.Deduped
	m.FeedPersisted += other.FeedPersisted
	m.FeedDeduped += other.FeedDeduped
	m.SkippedNoURL += other.SkippedNoURL
	m.SkippedUnlinked += other.SkippedUnlinked
	m.FlaggedSpam += other.FlaggedSpam
	m.FlaggedRelated += other.FlaggedRelated
	m.Errors += other.Errors
}

// SyncReport summarizes one binding run, or a batch of them
type SyncReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Duration    string          `json:"duration"`
	Since       time.Time       `json:"since"`
	Until       time.Time       `json:"until"`
	Metrics     SyncMetrics     `json:"metrics"`
	Bindings    []BindingReport `json:"bindings"`
}

// BindingReport is the outcome of one binding inside a SyncReport
type BindingReport struct {
	BindingID      string      `json:"binding_id"`
	AlertID        string      `json:"alert_id"`
	PagesProcessed int         `json:"pages_processed"`
	Completed      bool        `json:"completed"`
	NextCursor     string      `json:"next_cursor,omitempty"`
	Error          string      `json:"error,omitempty"`
	Metrics        SyncMetrics `json:"metrics"`
}

// FailedBindings returns the binding runs that ended with an error
func (r *SyncReport) FailedBindings() []BindingReport {
	var failed []BindingReport
	for _, binding := range r.Bindings {
		if binding.Error != "" {
			failed = append(failed, binding)
		}
	}
	return failed
}
