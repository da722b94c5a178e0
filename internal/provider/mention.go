package provider

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

const defaultProviderConfidence = 0.75

// Mention is one provider item. No schema is assumed: every accessor tolerates
// missing fields and alternate names.
type Mention struct {
	raw gjson.Result
}

// ParseMention wraps a raw JSON object as a Mention
func ParseMention(raw []byte) Mention {
	return Mention{raw: gjson.ParseBytes(raw)}
}

// Raw returns the provider payload as received
func (m Mention) Raw() json.RawMessage {
	if m.raw.Raw == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(m.raw.Raw)
}

// ID is the provider's own identifier, if any
func (m Mention) ID() string {
	return m.firstString("id", "mention_id", "uid")
}

// Source is the free-form network name used to derive the channel
func (m Mention) Source() string {
	return m.firstString("source_type", "source", "network", "platform", "source_name", "source.type", "source.name")
}

// Title returns the headline, when the provider sends one
func (m Mention) Title() string {
	return cleanText(m.firstString("title"))
}

// Text returns the mention body with markup stripped
func (m Mention) Text() string {
	return cleanText(m.firstString("text", "snippet", "description", "content", "message", "body"))
}

// URL returns the mention link
func (m Mention) URL() string {
	return m.firstString("url", "link", "original_url", "permalink_url", "permalink")
}

// AuthorName accepts nested author objects as well as flat fields
func (m Mention) AuthorName() string {
	return m.firstString("author.name", "author.username", "author.screen_name", "author", "author_name", "author_username", "username")
}

// AuthorID returns the provider's author identifier
func (m Mention) AuthorID() string {
	return m.firstString("author.id", "author.external_id", "author_id", "author_external_id")
}

// ParentID returns a provider-native parent post id
func (m Mention) ParentID() string {
	return m.firstString("parent_post_id", "post_id", "parent_id", "parent.id", "in_reply_to_id", "original_post_id")
}

// PublishedAt parses string, epoch-second or epoch-millisecond timestamps
func (m Mention) PublishedAt() *time.Time {
	value, ok := m.firstValue("published_at", "created_at", "published", "date", "timestamp", "time")
	if !ok {
		return nil
	}

	if value.Type == gjson.Number {
		return epoch(value.Float())
	}

	text := strings.TrimSpace(value.String())
	if number, err := strconv.ParseFloat(text, 64); err == nil {
		return epoch(number)
	}
	parsed, err := dateparse.ParseAny(text)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}

// PublishedRaw is the timestamp exactly as the provider sent it
func (m Mention) PublishedRaw() string {
	return m.firstString("published_at", "created_at", "published", "date", "timestamp", "time")
}

// ProviderSentiment returns the provider's sentiment label and confidence. The label is
// "unknown" when absent or unrecognised.
func (m Mention) ProviderSentiment() (string, float64) {
	label := models.SentimentUnknown
	if value, ok := m.firstValue("sentiment", "tone", "metadata.sentiment", "metadata.tone"); ok {
		label = sentimentLabel(value)
	}

	confidence := defaultProviderConfidence
	if value, ok := m.firstValue("sentiment_confidence", "confidence", "metadata.sentiment_confidence"); ok && value.Type == gjson.Number {
		confidence = clamp(value.Float(), 0, 1)
	}

	return label, confidence
}

func sentimentLabel(value gjson.Result) string {
	if value.Type == gjson.Number {
		switch {
		case value.Float() > 0:
			return models.SentimentPositive
		case value.Float() < 0:
			return models.SentimentNegative
		default:
			return models.SentimentNeutral
		}
	}

	switch strings.ToLower(strings.TrimSpace(value.String())) {
	case "positive", "pos", "1":
		return models.SentimentPositive
	case "negative", "neg", "-1":
		return models.SentimentNegative
	case "neutral", "neu", "0":
		return models.SentimentNeutral
	default:
		return models.SentimentUnknown
	}
}

func (m Mention) firstValue(paths ...string) (gjson.Result, bool) {
	for _, path := range paths {
		value := m.raw.Get(path)
		switch value.Type {
		case gjson.String, gjson.Number:
			if strings.TrimSpace(value.String()) != "" {
				return value, true
			}
		}
	}
	return gjson.Result{}, false
}

func (m Mention) firstString(paths ...string) string {
	value, ok := m.firstValue(paths...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value.String())
}

func epoch(value float64) *time.Time {
	if value <= 0 {
		return nil
	}
	var t time.Time
	if value > 1e12 {
		t = time.UnixMilli(int64(value)).UTC()
	} else {
		t = time.Unix(int64(value), 0).UTC()
	}
	return &t
}

// cleanText strips HTML markup from provider snippets and collapses whitespace
func cleanText(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.Join(strings.Fields(text), " ")
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			b.WriteByte(' ')
		}
	}
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
