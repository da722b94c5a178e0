package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ResolvePostMatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	post := models.PostMatch{PostID: "post-1", PostText: "Launch day"}
	s.AddPost(models.ChannelInstagram, "Abc12345", "https://www.instagram.com/p/abc12345", post)

	t.Run("By external id", func(t *testing.T) {
		match, err := s.ResolvePostMatch(ctx, models.ChannelInstagram, "Abc12345", "")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "post-1", match.PostID)
	})

	t.Run("External id is scoped to channel", func(t *testing.T) {
		match, err := s.ResolvePostMatch(ctx, models.ChannelFacebook, "Abc12345", "")
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("Falls back to normalized URL", func(t *testing.T) {
		match, err := s.ResolvePostMatch(ctx, models.ChannelInstagram, "other", "https://www.instagram.com/p/abc12345")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "Launch day", match.PostText)
	})

	t.Run("URL fallback is scoped to channel", func(t *testing.T) {
		match, err := s.ResolvePostMatch(ctx, models.ChannelFacebook, "", "https://www.instagram.com/p/abc12345")
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("No match", func(t *testing.T) {
		match, err := s.ResolvePostMatch(ctx, models.ChannelInstagram, "other", "https://example.com/x")
		require.NoError(t, err)
		assert.Nil(t, match)
	})
}

func TestMemoryStore_UpsertCommentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	comment := models.CommentInput{Provider: "mentions", ExternalMentionID: "m-1", PostID: "post-1"}

	first, err := s.UpsertComment(ctx, comment)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertPersisted, first.Status)
	assert.NotEmpty(t, first.ID)

	second, err := s.UpsertComment(ctx, comment)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertDeduped, second.Status)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.Comments, 1)

	comment.Provider = "other"
	third, err := s.UpsertComment(ctx, comment)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertPersisted, third.Status)
}

func TestMemoryStore_UpsertFeedItem(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	item := models.FeedItemInput{BindingID: "b1", AlertID: "a1", ExternalMentionID: "m-1", CanonicalURL: "https://example.com/post/1"}

	first, err := s.UpsertFeedItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertPersisted, first.Status)

	second, err := s.UpsertFeedItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertDeduped, second.Status)

	item.CanonicalURL = "https://example.com/post/2"
	third, err := s.UpsertFeedItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertPersisted, third.Status)
	assert.Len(t, s.FeedItems, 2)
}

func TestMemoryStore_Bindings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutBinding(models.Binding{ID: "b2", AlertID: "a2", Status: models.BindingStatusActive})
	s.PutBinding(models.Binding{ID: "b1", AlertID: "a1", Status: "paused"})

	bindings, err := s.ListBindings(ctx)
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, "b1", bindings[0].ID)

	binding, err := s.GetBinding(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, binding.IsSyncable())

	_, err = s.GetBinding(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Cursor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	cursor, err := s.LoadCursor(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, s.SaveCursor(ctx, "b1", "page-3", false))
	cursor, err = s.LoadCursor(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "page-3", cursor)

	require.NoError(t, s.SaveCursor(ctx, "b1", "page-5", true))
	cursor, err = s.LoadCursor(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, cursor)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().UpsertComment(ctx, models.CommentInput{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToCommentRecord(t *testing.T) {
	comment := models.CommentInput{
		Provider:          "mentions",
		ExternalMentionID: "m-1",
		Channel:           models.ChannelFacebook,
		ExternalCommentID: "c-1",
		Classification: models.Classification{
			Sentiment:   models.SentimentNegative,
			IsSpam:      true,
			NeedsReview: true,
		},
		RawPayload: json.RawMessage(`{"id":"m-1"}`),
	}

	record, err := toCommentRecord("id-1", comment)
	require.NoError(t, err)
	assert.Equal(t, "facebook", record.Channel)
	require.NotNil(t, record.ExternalCommentID)
	assert.Equal(t, "c-1", *record.ExternalCommentID)
	assert.Nil(t, record.ExternalReplyCommentID)
	assert.Equal(t, models.SentimentNegative, record.Sentiment)
	assert.True(t, record.IsSpam)
	assert.True(t, record.NeedsReview)
	assert.JSONEq(t, `{"id":"m-1"}`, string(record.RawPayload))

	var classification models.Classification
	require.NoError(t, json.Unmarshal(record.Classification, &classification))
	assert.Equal(t, comment.Classification, classification)
}

func TestToFeedRecord_InvalidPayloadBecomesEmptyObject(t *testing.T) {
	record := toFeedRecord("id-1", models.FeedItemInput{ProfileID: "p1", RawPayload: json.RawMessage("not json")})
	assert.Equal(t, "{}", string(record.RawPayload))
	assert.Equal(t, "p1", record.ProfileID)
}
