package monitoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brandlens/mentions-sync/internal/classify"
	"github.com/brandlens/mentions-sync/internal/config"
	"github.com/brandlens/mentions-sync/internal/identity"
	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/brandlens/mentions-sync/internal/notifications"
	"github.com/brandlens/mentions-sync/internal/provider"
	"github.com/brandlens/mentions-sync/internal/storage"
	"github.com/brandlens/mentions-sync/internal/store"
	"github.com/sirupsen/logrus"
)

// ProviderName scopes persisted mention identifiers
const ProviderName = "mention"

const (
	reportPrefix = "sync-runs/"
	reportLayout = "2006/01/02/150405"
)

const (
	defaultLookback = 30 * 24 * time.Hour
	defaultMaxPages = 10
	defaultPageSize = 100
)

var (
	// ErrBindingNotFound is returned when a single-binding sync names an unknown binding
	ErrBindingNotFound = errors.New("binding not found")
	// ErrSyncInProgress is returned when a batch run is requested while another is running
	ErrSyncInProgress = errors.New("sync already running")
)

// MentionProvider is the subset of the provider client the service drives
type MentionProvider interface {
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	ListMentionsPage(ctx context.Context, alertID string, opts provider.PageOptions) (*provider.MentionsPage, error)
}

// Service reconciles provider mentions with tracked posts
type Service struct {
	config              *config.Config
	provider            MentionProvider
	store               store.Store
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	metrics             *Metrics
	now                 func() time.Time
	mu                  sync.RWMutex
	// held for the whole of a scheduled batch
	runMu sync.Mutex
}

// Metrics holds the outcome of the most recent batch run
type Metrics struct {
	LastRun         time.Time          `json:"last_run"`
	LastRunDuration string             `json:"last_run_duration"`
	Runs            int                `json:"runs"`
	BindingsSynced  int                `json:"bindings_synced"`
	BindingsFailed  int                `json:"bindings_failed"`
	LastRunMetrics  models.SyncMetrics `json:"last_run_metrics"`
	TotalMetrics    models.SyncMetrics `json:"total_metrics"`
}

// SyncBindingInput selects what one binding run covers. Zero values fall back to configuration.
type SyncBindingInput struct {
	Binding  models.Binding
	Cursor   string
	Since    time.Time
	Until    time.Time
	MaxPages int
	PageSize int
	HardFail bool
}

// SyncBindingResult is the resumable outcome of one binding run
type SyncBindingResult struct {
	Metrics        models.SyncMetrics `json:"metrics"`
	NextCursor     string             `json:"next_cursor,omitempty"`
	PagesProcessed int                `json:"pages_processed"`
	Completed      bool               `json:"completed"`
}

// SyncAllInput configures a batch run over every active binding
type SyncAllInput struct {
	Since    time.Time
	Until    time.Time
	MaxPages int
	PageSize int
	Resume   bool
}

// NewService creates a new sync service. storage and notificationService may be nil.
func NewService(cfg *config.Config, mentionProvider MentionProvider, st store.Store, storage storage.StorageInterface, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:              cfg,
		provider:            mentionProvider,
		store:               st,
		storage:             storage,
		notificationService: notificationService,
		metrics:             &Metrics{},
		now:                 time.Now,
	}
}

// ListAlerts returns the provider's alerts
func (s *Service) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.provider.ListAlerts(ctx)
}

// SyncBindingByID loads a binding and syncs it
func (s *Service) SyncBindingByID(ctx context.Context, bindingID string, in SyncBindingInput) (SyncBindingResult, error) {
	binding, err := s.store.GetBinding(ctx, bindingID)
	if errors.Is(err, store.ErrNotFound) {
		return SyncBindingResult{}, fmt.Errorf("%w: %s", ErrBindingNotFound, bindingID)
	}
	if err != nil {
		return SyncBindingResult{}, err
	}

	in.Binding = *binding
	in.HardFail = in.HardFail || s.hardFail()
	return s.SyncBinding(ctx, in)
}

// SyncBinding walks one binding's mentions page by page until the provider cursor runs
// out or the page ceiling is reached. A page fetch failure stops the walk and leaves the
// result resumable from the last good cursor; the error is only returned with HardFail.
// Failures on individual mentions are counted and never stop the walk.
func (s *Service) SyncBinding(ctx context.Context, in SyncBindingInput) (SyncBindingResult, error) {
	binding := in.Binding
	log := logrus.WithFields(logrus.Fields{
		"binding_id": binding.ID,
		"alert_id":   binding.AlertID,
	})

	if !binding.IsSyncable() {
		log.WithField("status", binding.Status).Debug("Skipping binding that is not syncable")
		return SyncBindingResult{Completed: true}, nil
	}

	since, until := s.window(in.Since, in.Until)
	maxPages, pageSize := s.caps(in.MaxPages, in.PageSize)

	pager := provider.NewMentionPager(s.provider, binding.AlertID, provider.PageOptions{
		Cursor: in.Cursor,
		Since:  since,
		Until:  until,
		Limit:  pageSize,
	}, maxPages)

	var metrics models.SyncMetrics
	threshold := classify.ReviewThreshold(s.reviewThreshold())

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			metrics.Errors++
			result := SyncBindingResult{
				Metrics:        metrics,
				NextCursor:     pager.Cursor(),
				PagesProcessed: pager.Pages(),
			}
			log.WithFields(logrus.Fields{
				"page":   pager.Pages() + 1,
				"cursor": pager.Cursor(),
			}).Errorf("Failed to fetch mentions page: %v", err)

			if in.HardFail {
				return result, fmt.Errorf("sync binding %s: %w", binding.ID, err)
			}
			return result, nil
		}

		metrics.Fetched += len(page.Mentions)
		for _, mention := range page.Mentions {
			if err := s.processMention(ctx, binding, mention, threshold, &metrics); err != nil {
				metrics.Errors++
				log.WithField("mention_id", mention.ID()).Debugf("Failed to process mention: %v", err)
			}
		}

		log.WithFields(logrus.Fields{
			"page":      pager.Pages(),
			"mentions":  len(page.Mentions),
			"next":      page.Next,
			"linked":    metrics.Linked,
			"persisted": metrics.Persisted,
		}).Debug("Processed mentions page")
	}

	result := SyncBindingResult{
		Metrics:        metrics,
		NextCursor:     pager.Cursor(),
		PagesProcessed: pager.Pages(),
		Completed:      pager.Drained(),
	}

	log.WithFields(logrus.Fields{
		"pages":     result.PagesProcessed,
		"completed": result.Completed,
		"fetched":   metrics.Fetched,
		"linked":    metrics.Linked,
		"persisted": metrics.Persisted,
		"deduped":   metrics.Deduped,
		"errors":    metrics.Errors,
	}).Info("Binding sync finished")

	return result, nil
}

// processMention runs one mention through identification, linking, classification and
// upsert. Skips are counted in metrics and are not errors.
func (s *Service) processMention(ctx context.Context, binding models.Binding, mention provider.Mention, threshold float64, metrics *models.SyncMetrics) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing mention: %v", r)
		}
	}()

	channel := identity.MapSourceToChannel(mention.Source())
	if channel == models.ChannelUnknown {
		metrics.SkippedUnlinked++
		return nil
	}

	canonicalURL, hasURL := identity.NormalizeURL(mention.URL())
	mentionID := MentionKey(binding.ID, binding.AlertID, mention)

	if profileID := binding.FeedTarget(); profileID != "" {
		if !hasURL {
			metrics.SkippedNoURL++
		} else {
			res, err := s.store.UpsertFeedItem(ctx, models.FeedItemInput{
				BindingID:         binding.ID,
				AlertID:           binding.AlertID,
				ProfileID:         profileID,
				ExternalMentionID: mentionID,
				CanonicalURL:      canonicalURL,
				Channel:           channel,
				Title:             mention.Title(),
				Text:              mention.Text(),
				AuthorName:        mention.AuthorName(),
				PublishedAt:       mention.PublishedAt(),
				RawPayload:        mention.Raw(),
			})
			if err != nil {
				return fmt.Errorf("upsert feed item: %w", err)
			}
			if res.Status == models.UpsertDeduped {
				metrics.FeedDeduped++
			} else {
				metrics.FeedPersisted++
			}
		}
	}

	ids := identity.ExtractCommentIdentifiers(mention.URL())
	parentID := ids.ParentExternalPostID
	if parentID == "" {
		parentID = mention.ParentID()
	}
	if parentID == "" {
		metrics.SkippedUnlinked++
		return nil
	}

	match, err := s.store.ResolvePostMatch(ctx, channel, parentID, ids.NormalizedParentURL)
	if err != nil {
		return fmt.Errorf("resolve post: %w", err)
	}
	if match == nil {
		metrics.SkippedUnlinked++
		return nil
	}
	metrics.Linked++

	sentiment, sentimentConfidence := mention.ProviderSentiment()
	classification := classify.Classify(classify.Input{
		Text:               mention.Text(),
		URL:                mention.URL(),
		PostText:           match.PostText,
		ProviderSentiment:  sentiment,
		ProviderConfidence: sentimentConfidence,
	}, threshold)

	res, err := s.store.UpsertComment(ctx, models.CommentInput{
		Provider:               ProviderName,
		ExternalMentionID:      mentionID,
		BindingID:              binding.ID,
		AlertID:                binding.AlertID,
		PostID:                 match.PostID,
		Channel:                channel,
		ParentExternalPostID:   parentID,
		ExternalCommentID:      ids.ExternalCommentID,
		ExternalReplyCommentID: ids.ExternalReplyCommentID,
		URL:                    canonicalURL,
		AuthorName:             mention.AuthorName(),
		AuthorExternalID:       mention.AuthorID(),
		Text:                   mention.Text(),
		PublishedAt:            mention.PublishedAt(),
		Classification:         classification,
		RawPayload:             mention.Raw(),
	})
	if err != nil {
		return fmt.Errorf("upsert comment: %w", err)
	}

	if res.Status == models.UpsertDeduped {
		metrics.Deduped++
	} else {
		metrics.Persisted++
	}
	if classification.IsSpam {
		metrics.FlaggedSpam++
	}
	if classification.RelatedToPostText {
		metrics.FlaggedRelated++
	}

	return nil
}

// MentionKey returns the provider's mention id, or a stable synthetic id derived from the
// mention's identifying fields when the provider did not send one.
func MentionKey(bindingID, alertID string, mention provider.Mention) string {
	if id := mention.ID(); id != "" {
		return id
	}

	link := mention.URL()
	if canonical, ok := identity.NormalizeURL(link); ok {
		link = canonical
	}

	parts := []string{
		bindingID,
		alertID,
		link,
		mention.PublishedRaw(),
		mention.Text(),
		mention.AuthorName(),
		mention.AuthorID(),
		mention.Source(),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "syn_" + hex.EncodeToString(sum[:])
}

// SyncAllBindings syncs every active binding one after another and sums their metrics.
// A failing binding is recorded in the report and does not stop the batch.
func (s *Service) SyncAllBindings(ctx context.Context, in SyncAllInput) (*models.SyncReport, error) {
	start := s.now()

	bindings, err := s.store.ListBindings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}

	since, until := s.window(in.Since, in.Until)
	report := &models.SyncReport{
		Since:    since,
		Until:    until,
		Bindings: make([]models.BindingReport, 0, len(bindings)),
	}

	synced, failed := 0, 0
	for _, binding := range bindings {
		if !binding.IsSyncable() {
			continue
		}
		if ctx.Err() != nil {
			logrus.Warnf("Batch sync interrupted before binding %s: %v", binding.ID, ctx.Err())
			break
		}

		cursor := ""
		if in.Resume {
			cursor, err = s.store.LoadCursor(ctx, binding.ID)
			if err != nil {
				logrus.Warnf("Failed to load cursor for binding %s, starting fresh: %v", binding.ID, err)
				cursor = ""
			}
		}

		result, err := s.SyncBinding(ctx, SyncBindingInput{
			Binding:  binding,
			Cursor:   cursor,
			Since:    since,
			Until:    until,
			MaxPages: in.MaxPages,
			PageSize: in.PageSize,
			HardFail: true,
		})

		entry := models.BindingReport{
			BindingID:      binding.ID,
			AlertID:        binding.AlertID,
			PagesProcessed: result.PagesProcessed,
			Completed:      result.Completed,
			NextCursor:     result.NextCursor,
			Metrics:        result.Metrics,
		}
		if err != nil {
			entry.Error = err.Error()
			failed++
		} else {
			synced++
		}
		report.Bindings = append(report.Bindings, entry)
		report.Metrics.Add(result.Metrics)

		if in.Resume {
			if err := s.store.SaveCursor(ctx, binding.ID, result.NextCursor, result.Completed); err != nil {
				logrus.Warnf("Failed to save cursor for binding %s: %v", binding.ID, err)
			}
		}
	}

	duration := s.now().Sub(start)
	report.GeneratedAt = s.now().UTC()
	report.Duration = duration.String()

	s.updateMetrics(report, duration, synced, failed)

	logrus.WithFields(logrus.Fields{
		"bindings":  len(report.Bindings),
		"failed":    failed,
		"fetched":   report.Metrics.Fetched,
		"linked":    report.Metrics.Linked,
		"persisted": report.Metrics.Persisted,
		"deduped":   report.Metrics.Deduped,
		"errors":    report.Metrics.Errors,
	}).Infof("Batch sync completed in %v", duration)

	return report, nil
}

// RunScheduledSync performs a resumable batch run, archives its report and sends a
// summary through the configured notification channels. Only one batch runs at a time;
// a second caller gets ErrSyncInProgress. With SYNC_HARD_FAIL set, a batch in which any
// binding failed returns an error after the report has been archived and sent.
func (s *Service) RunScheduledSync(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.runMu.Unlock()

	return s.runScheduledSync(ctx)
}

// StartScheduledSync runs RunScheduledSync in the background. It returns
// ErrSyncInProgress right away when a batch is already running.
func (s *Service) StartScheduledSync(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return ErrSyncInProgress
	}

	go func() {
		defer s.runMu.Unlock()
		if err := s.runScheduledSync(ctx); err != nil {
			logrus.Errorf("Background sync run failed: %v", err)
		}
	}()
	return nil
}

func (s *Service) runScheduledSync(ctx context.Context) error {
	logrus.Info("Starting scheduled sync run")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	report, err := s.SyncAllBindings(ctx, SyncAllInput{Resume: true})
	if err != nil {
		logrus.Errorf("Scheduled sync failed: %v", err)
		return err
	}

	if err := s.archiveReport(ctx, report); err != nil {
		logrus.Errorf("Failed to archive sync report: %v", err)
	}
	if err := s.PruneReports(ctx); err != nil {
		logrus.Warnf("Failed to prune archived reports: %v", err)
	}

	if s.shouldNotify(report) {
		if err := s.notificationService.SendReport(report); err != nil {
			logrus.Errorf("Failed to send sync report: %v", err)
			return err
		}
	}

	if s.hardFail() {
		if failed := report.FailedBindings(); len(failed) > 0 {
			return fmt.Errorf("scheduled sync: %d of %d bindings failed", len(failed), len(report.Bindings))
		}
	}

	return nil
}

func (s *Service) hardFail() bool {
	return s.config != nil && s.config.SyncHardFail
}

func (s *Service) shouldNotify(report *models.SyncReport) bool {
	if s.notificationService == nil {
		return false
	}
	if s.config != nil && !s.config.NotifyOnErrorsOnly {
		return true
	}
	return report.Metrics.Errors > 0
}

// ReportName is the archive path of a report generated at t
func ReportName(t time.Time) string {
	return reportPrefix + t.UTC().Format(reportLayout) + ".json"
}

func reportTime(name string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), ".json")
	t, err := time.Parse(reportLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Service) archiveReport(ctx context.Context, report *models.SyncReport) error {
	if s.storage == nil {
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return s.storage.Store(ctx, ReportName(report.GeneratedAt), data)
}

// ListReports returns the names of archived reports, oldest first
func (s *Service) ListReports(ctx context.Context) ([]string, error) {
	if s.storage == nil {
		return []string{}, nil
	}
	names, err := s.storage.List(ctx, reportPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// GetReport loads one archived report
func (s *Service) GetReport(ctx context.Context, name string) (*models.SyncReport, error) {
	if s.storage == nil || !strings.HasPrefix(name, reportPrefix) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}

	data, err := s.storage.Retrieve(ctx, name)
	if err != nil {
		return nil, err
	}

	var report models.SyncReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", name, err)
	}
	return &report, nil
}

// PruneReports deletes archived reports older than the configured retention
func (s *Service) PruneReports(ctx context.Context) error {
	if s.storage == nil || s.config == nil || s.config.ReportRetention <= 0 {
		return nil
	}

	names, err := s.storage.List(ctx, reportPrefix)
	if err != nil {
		return err
	}

	cutoff := s.now().UTC().Add(-s.config.ReportRetention)
	for _, name := range names {
		generated, ok := reportTime(name)
		if !ok || !generated.Before(cutoff) {
			continue
		}
		if err := s.storage.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) window(since, until time.Time) (time.Time, time.Time) {
	if until.IsZero() {
		until = s.now().UTC()
	}
	if since.IsZero() {
		lookback := defaultLookback
		if s.config != nil && s.config.SyncLookback > 0 {
			lookback = s.config.SyncLookback
		}
		since = until.Add(-lookback)
	}
	return since, until
}

func (s *Service) caps(maxPages, pageSize int) (int, int) {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
		if s.config != nil && s.config.SyncMaxPages > 0 {
			maxPages = s.config.SyncMaxPages
		}
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
		if s.config != nil && s.config.SyncPageSize > 0 {
			pageSize = s.config.SyncPageSize
		}
	}
	return maxPages, pageSize
}

func (s *Service) reviewThreshold() float64 {
	if s.config == nil {
		return classify.DefaultReviewThreshold
	}
	return s.config.ReviewThreshold
}

func (s *Service) updateMetrics(report *models.SyncReport, duration time.Duration, synced, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = report.GeneratedAt
	s.metrics.LastRunDuration = duration.String()
	s.metrics.Runs++
	s.metrics.BindingsSynced = synced
	s.metrics.BindingsFailed = failed
	s.metrics.LastRunMetrics = report.Metrics
	s.metrics.TotalMetrics.Add(report.Metrics)
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
