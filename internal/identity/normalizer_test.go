package identity

import (
	"testing"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "Mixed case with trailing slash",
			input:    "HTTPS://Example.com/Post/123/",
			expected: "https://example.com/post/123",
			ok:       true,
		},
		{
			name:     "Query and fragment dropped",
			input:    "https://www.facebook.com/brand/posts/12345?comment_id=99#top",
			expected: "https://www.facebook.com/brand/posts/12345",
			ok:       true,
		},
		{
			name:     "Empty path becomes slash",
			input:    "https://example.com",
			expected: "https://example.com/",
			ok:       true,
		},
		{
			name:     "Only slashes",
			input:    "https://example.com///",
			expected: "https://example.com/",
			ok:       true,
		},
		{
			name:  "Not a URL",
			input: "just some text",
			ok:    false,
		},
		{
			name:  "Empty",
			input: "   ",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := NormalizeURL(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Example.com/Post/123/",
		"https://www.instagram.com/p/CxYz123AbC/?igshid=abc",
		"http://example.com",
		"https://www.linkedin.com/feed/update/urn:li:activity:7123456789/",
	}

	for _, input := range inputs {
		once, ok := NormalizeURL(input)
		assert.True(t, ok, input)
		twice, ok := NormalizeURL(once)
		assert.True(t, ok, input)
		assert.Equal(t, once, twice, input)
	}
}

func TestMapSourceToChannel(t *testing.T) {
	tests := []struct {
		source   string
		expected models.Channel
	}{
		{"Facebook Pages", models.ChannelFacebook},
		{"facebook", models.ChannelFacebook},
		{"INSTAGRAM", models.ChannelInstagram},
		{"linkedin_company", models.ChannelLinkedIn},
		{"TikTok", models.ChannelTikTok},
		{"twitter", models.ChannelUnknown},
		{"", models.ChannelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapSourceToChannel(tt.source))
		})
	}
}

func TestExtractCommentIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected CommentIdentifiers
	}{
		{
			name: "Facebook comment query parameters",
			url:  "https://www.facebook.com/brand/posts/pfbid0abc123?comment_id=555666&reply_comment_id=777888",
			expected: CommentIdentifiers{
				ParentExternalPostID:   "pfbid0abc123",
				ExternalCommentID:      "555666",
				ExternalReplyCommentID: "777888",
				NormalizedParentURL:    "https://www.facebook.com/brand/posts/pfbid0abc123",
			},
		},
		{
			name: "Story fbid wins over path",
			url:  "https://www.facebook.com/permalink.php?story_fbid=1234567890&id=100064",
			expected: CommentIdentifiers{
				ParentExternalPostID: "1234567890",
				NormalizedParentURL:  "https://www.facebook.com/permalink.php",
			},
		},
		{
			name: "Explicit parent post id",
			url:  "https://example.com/c?parent_post_id=abcde12345&post_id=zzzzz99999",
			expected: CommentIdentifiers{
				ParentExternalPostID: "abcde12345",
				NormalizedParentURL:  "https://example.com/c",
			},
		},
		{
			name: "Instagram shortcode after p",
			url:  "https://www.instagram.com/p/CxYz123AbC/",
			expected: CommentIdentifiers{
				ParentExternalPostID: "CxYz123AbC",
				NormalizedParentURL:  "https://www.instagram.com/p/cxyz123abc",
			},
		},
		{
			name: "TikTok video",
			url:  "https://www.tiktok.com/@brand/video/7234567890123456789",
			expected: CommentIdentifiers{
				ParentExternalPostID: "7234567890123456789",
				NormalizedParentURL:  "https://www.tiktok.com/@brand/video/7234567890123456789",
			},
		},
		{
			name: "LinkedIn activity urn",
			url:  "https://www.linkedin.com/feed/update/urn:li:activity:7123456789/",
			expected: CommentIdentifiers{
				ParentExternalPostID: "7123456789",
				NormalizedParentURL:  "https://www.linkedin.com/feed/update/urn:li:activity:7123456789",
			},
		},
		{
			name: "Short query id falls back to path",
			url:  "https://www.facebook.com/reel/98765432101?id=12",
			expected: CommentIdentifiers{
				ParentExternalPostID: "98765432101",
				NormalizedParentURL:  "https://www.facebook.com/reel/98765432101",
			},
		},
		{
			name: "Longest segment fallback",
			url:  "https://example.com/abc/some-long-identifier/x",
			expected: CommentIdentifiers{
				ParentExternalPostID: "some-long-identifier",
				NormalizedParentURL:  "https://example.com/abc/some-long-identifier/x",
			},
		},
		{
			name: "Unparseable URL",
			url:  "not a url/Path/?x=1",
			expected: CommentIdentifiers{
				NormalizedParentURL: "not a url/path",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCommentIdentifiers(tt.url))
		})
	}
}
