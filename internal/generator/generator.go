// Package generator runs the publish pipeline for one post: export the page
// from the content source, redact it, persist the private mapping, and emit
// the sanitized post file.
//
// Ordering is load-bearing: the redactor must succeed before anything is
// written, and the mapping must be persisted before the post file so that a
// published placeholder always has a mapping entry. A verification failure
// aborts the run with nothing on disk.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hfi/notion-redactor/internal/audit"
	"github.com/hfi/notion-redactor/internal/mapping"
	"github.com/hfi/notion-redactor/internal/metrics"
	"github.com/hfi/notion-redactor/internal/notion"
	"github.com/hfi/notion-redactor/internal/redact"
)

// Post is one generated, sanitized post.
type Post struct {
	ID           string
	Title        string
	Description  string
	PublishedAt  time.Time
	Body         string
	Placeholders []string
	Path         string
}

// frontMatter is the YAML header of an emitted post file.
type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Date        string `yaml:"date"`
	SourcePage  string `yaml:"source_page"`
}

// Generator drives the publish pipeline.
type Generator struct {
	source   notion.Source
	redactor *redact.Redactor
	store    mapping.Store
	outDir   string
	auditLog *audit.Logger
	log      zerolog.Logger
}

// New creates a generator writing post files under outDir.
func New(source notion.Source, redactor *redact.Redactor, store mapping.Store, outDir string, log zerolog.Logger) *Generator {
	return &Generator{
		source:   source,
		redactor: redactor,
		store:    store,
		outDir:   outDir,
		log:      log,
	}
}

// SetAuditLogger attaches the security event trail.
func (g *Generator) SetAuditLogger(l *audit.Logger) {
	g.auditLog = l
}

// Generate publishes one page. On any error nothing is emitted; a
// *redact.VerificationError is returned unwrapped enough for errors.As.
func (g *Generator) Generate(ctx context.Context, pageID string) (*Post, error) {
	meta, err := g.source.GetPage(ctx, pageID)
	if err != nil {
		g.auditUpstreamError(pageID, err)
		return nil, fmt.Errorf("fetch page %s: %w", pageID, err)
	}

	markdown, err := g.source.ExportMarkdown(ctx, pageID)
	if err != nil {
		g.auditUpstreamError(pageID, err)
		return nil, fmt.Errorf("export page %s: %w", pageID, err)
	}

	postID := meta.ID
	if postID == "" {
		postID = pageID
	}

	result, err := g.redactor.Redact(markdown)
	if err != nil {
		var verr *redact.VerificationError
		if errors.As(err, &verr) {
			metrics.RedactionsTotal.WithLabelValues("verification_failed").Inc()
			for _, class := range verr.Classes {
				metrics.VerificationFailuresTotal.WithLabelValues(class).Inc()
				if g.auditLog != nil {
					g.auditLog.LogVerificationFailed(postID, class, len(verr.Samples))
				}
			}
			g.log.Error().Str("post_id", postID).Strs("classes", verr.Classes).
				Msg("publish aborted: residual credential-shaped content")
		}
		return nil, fmt.Errorf("redact page %s: %w", pageID, err)
	}

	metrics.RedactionsTotal.WithLabelValues("ok").Inc()
	for _, m := range result.Detected {
		metrics.RecordSecretDetected(m.Rule, string(m.Class))
		if g.auditLog != nil {
			g.auditLog.LogSecretDetected(postID, m.Rule, string(m.Class))
		}
	}
	if g.auditLog != nil {
		g.auditLog.LogRedactionCompleted(postID, len(result.Mapping))
	}

	if err := g.store.Save(ctx, postID, result.Mapping); err != nil {
		return nil, fmt.Errorf("save mapping for %s: %w", postID, err)
	}
	if g.auditLog != nil {
		g.auditLog.LogMappingSaved(postID, len(result.Mapping))
	}

	post := &Post{
		ID:           postID,
		Title:        meta.Title,
		Description:  meta.Description,
		PublishedAt:  meta.PublishedAt,
		Body:         result.Text,
		Placeholders: result.Placeholders(),
	}

	path, err := g.writePost(post)
	if err != nil {
		return nil, fmt.Errorf("write post %s: %w", postID, err)
	}
	post.Path = path

	if g.auditLog != nil {
		g.auditLog.LogPostPublished(postID)
	}
	g.log.Info().Str("post_id", postID).Str("path", path).
		Int("placeholders", len(post.Placeholders)).Msg("post published")
	return post, nil
}

// writePost emits the front-mattered markdown file atomically.
func (g *Generator) writePost(post *Post) (string, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if strings.ContainsAny(post.ID, "/\\") || strings.Contains(post.ID, "..") {
		return "", fmt.Errorf("invalid post id %q", post.ID)
	}

	fm, err := yaml.Marshal(frontMatter{
		Title:       post.Title,
		Description: post.Description,
		Date:        post.PublishedAt.Format("2006-01-02"),
		SourcePage:  post.ID,
	})
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n\n")
	sb.WriteString(post.Body)

	path := filepath.Join(g.outDir, post.ID+".md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func (g *Generator) auditUpstreamError(postID string, err error) {
	if g.auditLog != nil {
		g.auditLog.LogUpstreamError("", postID, err.Error())
	}
}
