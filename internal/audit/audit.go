// Package audit emits the security event trail for the redaction pipeline:
// what was detected, what was scrubbed, what failed verification, and what
// the resolver served. Operational logging lives elsewhere; this trail is the
// record an operator checks after a publish is aborted.
package audit

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// EventType identifies an audit event.
type EventType string

const (
	EventSecretDetected     EventType = "secret_detected"
	EventRedactionCompleted EventType = "redaction_completed"
	EventVerificationFailed EventType = "verification_failed"
	EventMappingSaved       EventType = "mapping_saved"
	EventPostPublished      EventType = "post_published"
	EventCachePopulated     EventType = "cache_populated"
	EventResolveServed      EventType = "resolve_served"
	EventWebhookRejected    EventType = "webhook_rejected"
	EventUpstreamError      EventType = "upstream_error"
)

// Event is one audit record. Matched credential values never appear here;
// only rule names, classes, and fixed-width samples produced upstream.
type Event struct {
	Timestamp time.Time
	Type      EventType
	RequestID string
	PostID    string
	Rule      string
	Class     string
	Tier      string
	Key       string
	Count     int
	Error     string
}

// Config holds audit logger settings.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"` // "stdout", "stderr", or a file path
	Format  string `yaml:"format"` // "json" or "text"
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Output:  "stdout",
		Format:  "json",
	}
}

// Logger writes audit events.
type Logger struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	output  io.Writer
	enabled bool
}

// NewLogger creates an audit logger from config.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		output = f
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return &Logger{
		logger:  slog.New(handler),
		output:  output,
		enabled: cfg.Enabled,
	}, nil
}

// Log writes one event.
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	logger := l.logger
	l.mu.RUnlock()

	if !enabled || logger == nil {
		return
	}

	attrs := []any{slog.String("type", string(event.Type))}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.PostID != "" {
		attrs = append(attrs, slog.String("post_id", event.PostID))
	}
	if event.Rule != "" {
		attrs = append(attrs, slog.String("rule", event.Rule))
	}
	if event.Class != "" {
		attrs = append(attrs, slog.String("class", event.Class))
	}
	if event.Tier != "" {
		attrs = append(attrs, slog.String("tier", event.Tier))
	}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	logger.Info("audit", attrs...)
}

// LogSecretDetected records one detection-pass hit.
func (l *Logger) LogSecretDetected(postID, rule, class string) {
	l.Log(&Event{Type: EventSecretDetected, PostID: postID, Rule: rule, Class: class})
}

// LogRedactionCompleted records a successful redaction pass.
func (l *Logger) LogRedactionCompleted(postID string, placeholders int) {
	l.Log(&Event{Type: EventRedactionCompleted, PostID: postID, Count: placeholders})
}

// LogVerificationFailed records a fatal verification hit.
func (l *Logger) LogVerificationFailed(postID, class string, count int) {
	l.Log(&Event{Type: EventVerificationFailed, PostID: postID, Class: class, Count: count})
}

// LogMappingSaved records persistence of a post's mapping table.
func (l *Logger) LogMappingSaved(postID string, entries int) {
	l.Log(&Event{Type: EventMappingSaved, PostID: postID, Count: entries})
}

// LogPostPublished records emission of a sanitized post file.
func (l *Logger) LogPostPublished(postID string) {
	l.Log(&Event{Type: EventPostPublished, PostID: postID})
}

// LogCachePopulated records a durable-cache write.
func (l *Logger) LogCachePopulated(requestID, key string) {
	l.Log(&Event{Type: EventCachePopulated, RequestID: requestID, Key: key})
}

// LogResolveServed records a served resolution request.
func (l *Logger) LogResolveServed(requestID, postID string, resolved int) {
	l.Log(&Event{Type: EventResolveServed, RequestID: requestID, PostID: postID, Count: resolved})
}

// LogWebhookRejected records a rejected webhook delivery.
func (l *Logger) LogWebhookRejected(requestID, reason string) {
	l.Log(&Event{Type: EventWebhookRejected, RequestID: requestID, Error: reason})
}

// LogUpstreamError records an external-dependency failure.
func (l *Logger) LogUpstreamError(requestID, postID, errMsg string) {
	l.Log(&Event{Type: EventUpstreamError, RequestID: requestID, PostID: postID, Error: errMsg})
}

// Enable turns the trail on.
func (l *Logger) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Disable turns the trail off.
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
}

// Close closes a file-backed output.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.output.(io.Closer); ok {
		if l.output != os.Stdout && l.output != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
