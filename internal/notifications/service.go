package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"opine/internal/config"
)

const userAgent = "Opine/0.1.0"

// Service defines the notification surface exposed to daemon loops and
// CLI commands. Category switches in the config gate every method except
// TestNotification, which always delivers so operators can verify the
// topic end to end.
type Service interface {
	NotifyScanCompleted(ctx context.Context, surveyID string, groups, duplicates, failedBuckets int, duration time.Duration) error
	NotifyCohortRestored(ctx context.Context, from, to string, matched, updated int64) error
	NotifyDuplicatesPurged(ctx context.Context, surveyID string, deleted, retained int64) error
	NotifyLeaseSweep(ctx context.Context, cleared int64) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		scans:       cfg.Notifications.Scans,
		maintenance: cfg.Notifications.Maintenance,
		errors:      cfg.Notifications.Errors,
		window:      cfg.NotifyDedupWindow(),
		recent:      make(map[string]time.Time),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	scans       bool
	maintenance bool
	errors      bool
	window      time.Duration

	mu     sync.Mutex
	recent map[string]time.Time
}

func (n *ntfyService) NotifyScanCompleted(ctx context.Context, surveyID string, groups, duplicates, failedBuckets int, duration time.Duration) error {
	if !n.scans {
		return nil
	}
	surveyID = strings.TrimSpace(surveyID)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	switch {
	case failedBuckets > 0:
		title = "Opine - Scan Complete (with errors)"
		message = fmt.Sprintf("🔍 Duplicate scan of %s: %d groups, %d duplicates, %d buckets failed in %s", surveyID, groups, duplicates, failedBuckets, duration)
	case duplicates == 0:
		title = "Opine - Scan Complete"
		message = fmt.Sprintf("🔍 Duplicate scan of %s: no duplicates found in %s", surveyID, duration)
	default:
		title = "Opine - Scan Complete"
		message = fmt.Sprintf("🔍 Duplicate scan of %s: %d groups, %d duplicates in %s", surveyID, groups, duplicates, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"opine", "scan", "completed"},
	}
	if failedBuckets > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCohortRestored(ctx context.Context, from, to string, matched, updated int64) error {
	if !n.maintenance {
		return nil
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	data := payload{
		title:   "Opine - Cohort Restored",
		message: fmt.Sprintf("♻️ Restored %d of %d responses from %s to %s", updated, matched, from, to),
		tags:    []string{"opine", "maintenance", "restore"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDuplicatesPurged(ctx context.Context, surveyID string, deleted, retained int64) error {
	if !n.maintenance {
		return nil
	}
	surveyID = strings.TrimSpace(surveyID)
	message := fmt.Sprintf("🧹 Purged %d duplicate responses from %s", deleted, surveyID)
	if retained > 0 {
		message = fmt.Sprintf("%s\n%d retained under active review", message, retained)
	}
	data := payload{
		title:   "Opine - Duplicates Purged",
		message: message,
		tags:    []string{"opine", "maintenance", "purge"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLeaseSweep(ctx context.Context, cleared int64) error {
	if !n.maintenance || cleared <= 0 {
		return nil
	}
	data := payload{
		title:   "Opine - Leases Reclaimed",
		message: fmt.Sprintf("Reclaimed %d expired review leases", cleared),
		tags:    []string{"opine", "maintenance", "sweep"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	message := builder.String()
	if n.suppressed(message) {
		return nil
	}

	data := payload{
		title:    "Opine - Error",
		message:  message,
		tags:     []string{"opine", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Opine - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"opine", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// suppressed records message and reports whether an identical error was
// already delivered inside the dedup window. Stale entries are pruned on
// the way through so the map stays bounded by distinct recent messages.
func (n *ntfyService) suppressed(message string) bool {
	if n.window <= 0 {
		return false
	}
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.recent[message]; ok && now.Sub(last) < n.window {
		return true
	}
	for key, at := range n.recent {
		if now.Sub(at) >= n.window {
			delete(n.recent, key)
		}
	}
	n.recent[message] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyScanCompleted(context.Context, string, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyCohortRestored(context.Context, string, string, int64, int64) error {
	return nil
}
func (noopService) NotifyDuplicatesPurged(context.Context, string, int64, int64) error { return nil }
func (noopService) NotifyLeaseSweep(context.Context, int64) error                      { return nil }
func (noopService) NotifyError(context.Context, error, string) error                   { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
