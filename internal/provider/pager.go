package provider

import (
	"context"
)

// PageFetcher fetches a single page of mentions
type PageFetcher interface {
	ListMentionsPage(ctx context.Context, alertID string, opts PageOptions) (*MentionsPage, error)
}

// MentionPager walks an alert's mentions page by page in provider cursor order.
// It is finite once the provider returns no cursor or maxPages pages were read.
// A pager cannot be restarted; resume from Cursor() with a new pager instead.
type MentionPager struct {
	fetcher  PageFetcher
	alertID  string
	opts     PageOptions
	maxPages int
	pages    int
	cursor   string
	drained  bool
}

// NewMentionPager starts at opts.Cursor. maxPages <= 0 means no page ceiling.
func NewMentionPager(fetcher PageFetcher, alertID string, opts PageOptions, maxPages int) *MentionPager {
	return &MentionPager{
		fetcher:  fetcher,
		alertID:  alertID,
		opts:     opts,
		maxPages: maxPages,
		cursor:   opts.Cursor,
	}
}

// More reports whether another page may be fetched
func (p *MentionPager) More() bool {
	if p.drained {
		return false
	}
	return p.maxPages <= 0 || p.pages < p.maxPages
}

// NextPage fetches the page at the current cursor. On error the cursor is left
// untouched so the walk can be resumed from it.
func (p *MentionPager) NextPage(ctx context.Context) (*MentionsPage, error) {
	opts := p.opts
	opts.Cursor = p.cursor

	page, err := p.fetcher.ListMentionsPage(ctx, p.alertID, opts)
	if err != nil {
		return nil, err
	}

	p.pages++
	p.cursor = page.Next
	if page.Next == "" {
		p.drained = true
	}

	return page, nil
}

// Cursor is the cursor of the next unread page; empty once drained
func (p *MentionPager) Cursor() string {
	return p.cursor
}

// Drained reports whether the provider signalled the last page
func (p *MentionPager) Drained() bool {
	return p.drained
}

// Pages is the number of pages successfully fetched
func (p *MentionPager) Pages() int {
	return p.pages
}
