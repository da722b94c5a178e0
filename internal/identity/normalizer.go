package identity

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/brandlens/mentions-sync/internal/models"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{5,}$`)

// Query parameters carrying the parent post id, in priority order
var parentParams = []string{"parent_post_id", "post_id", "story_fbid", "fbid", "id", "v"}

// Path segments that are followed by a post identifier
var routeTokens = map[string]bool{
	"posts":     true,
	"post":      true,
	"p":         true,
	"reel":      true,
	"reels":     true,
	"photo":     true,
	"photos":    true,
	"video":     true,
	"videos":    true,
	"watch":     true,
	"story":     true,
	"permalink": true,
	"update":    true,
}

var knownChannels = []models.Channel{
	models.ChannelFacebook,
	models.ChannelInstagram,
	models.ChannelLinkedIn,
	models.ChannelTikTok,
}

// CommentIdentifiers holds the ids recovered from a mention URL. Empty strings mean absent.
type CommentIdentifiers struct {
	ParentExternalPostID   string
	ExternalCommentID      string
	ExternalReplyCommentID string
	NormalizedParentURL    string
}

// NormalizeURL returns the canonical scheme://host/path form of raw, lower-cased,
// without query, fragment or trailing slashes. The second value is false when raw
// is not an absolute URL.
func NormalizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}

	return strings.ToLower(u.Scheme + "://" + u.Host + path), true
}

// MapSourceToChannel maps a free-form source or network name to a channel
func MapSourceToChannel(source string) models.Channel {
	source = strings.ToLower(source)
	for _, channel := range knownChannels {
		if strings.Contains(source, string(channel)) {
			return channel
		}
	}
	return models.ChannelUnknown
}

// ExtractCommentIdentifiers pulls parent post, comment and reply ids out of a mention URL.
// Query parameters win over path segments.
func ExtractCommentIdentifiers(raw string) CommentIdentifiers {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return CommentIdentifiers{NormalizedParentURL: bestEffortNormalize(raw)}
	}

	ids := CommentIdentifiers{}
	if normalized, ok := NormalizeURL(raw); ok {
		ids.NormalizedParentURL = normalized
	}

	query := u.Query()
	ids.ExternalCommentID = strings.TrimSpace(query.Get("comment_id"))
	ids.ExternalReplyCommentID = strings.TrimSpace(query.Get("reply_comment_id"))

	for _, param := range parentParams {
		if value := strings.TrimSpace(query.Get(param)); looksLikeID(value) {
			ids.ParentExternalPostID = value
			break
		}
	}

	if ids.ParentExternalPostID == "" {
		ids.ParentExternalPostID = idFromPath(u.Path)
	}

	return ids
}

func idFromPath(path string) string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	for i := 0; i < len(segments)-1; i++ {
		if !routeTokens[strings.ToLower(segments[i])] {
			continue
		}
		candidate := segments[i+1]
		// LinkedIn activity URNs: urn:li:activity:7123
		if idx := strings.LastIndex(candidate, ":"); idx >= 0 {
			candidate = candidate[idx+1:]
		}
		if looksLikeID(candidate) {
			return candidate
		}
	}

	longest := ""
	for _, segment := range segments {
		if routeTokens[strings.ToLower(segment)] || !looksLikeID(segment) {
			continue
		}
		if len(segment) > len(longest) {
			longest = segment
		}
	}
	return longest
}

func looksLikeID(value string) bool {
	return idPattern.MatchString(value)
}

func bestEffortNormalize(raw string) string {
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ToLower(strings.TrimRight(raw, "/"))
}
