package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hfi/notion-redactor/internal/metrics"
	"github.com/hfi/notion-redactor/internal/webhook"
)

// maxWebhookBody bounds the payload a sender can make us buffer.
const maxWebhookBody = 1 << 20

// instrument wraps a handler with a request id, request logging, and the
// latency histogram.
func (s *Server) instrument(endpoint string, h func(w http.ResponseWriter, r *http.Request, requestID string)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()

		h(w, r, requestID)

		s.log.Debug().
			Str("request_id", requestID).
			Str("endpoint", endpoint).
			Str("remote", r.RemoteAddr).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
		metrics.RecordRequestDuration(endpoint, time.Since(start).Seconds())
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// imageMapHandler serves the resolved placeholder map for one post. A post
// the service knows nothing about yields an empty object, not an error; a
// degraded tier does the same for the placeholders it would have covered.
func (s *Server) imageMapHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	postID := r.URL.Query().Get("postId")
	if postID == "" {
		writeError(w, http.StatusBadRequest, "postId is required")
		return
	}

	metrics.ResolveRequestsTotal.Inc()
	resolved, err := s.resolver.ResolveAll(r.Context(), postID)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Str("post_id", postID).
			Msg("resolution failed")
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	if s.auditLog != nil {
		s.auditLog.LogResolveServed(requestID, postID, len(resolved))
	}
	writeJSON(w, http.StatusOK, resolved)
}

// imageProxyHandler fetches an ephemeral URL through the durable cache and
// returns the cached path.
func (s *Server) imageProxyHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	originalURL := r.URL.Query().Get("url")
	hash := r.URL.Query().Get("hash")
	if originalURL == "" || hash == "" {
		writeError(w, http.StatusBadRequest, "url and hash are required")
		return
	}

	path, err := s.resolver.FetchThrough(r.Context(), originalURL, hash)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Str("key", hash).
			Msg("proxy fetch failed")
		if s.auditLog != nil {
			s.auditLog.LogUpstreamError(requestID, "", err.Error())
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch image")
		return
	}

	if s.auditLog != nil {
		s.auditLog.LogCachePopulated(requestID, hash)
	}
	writeJSON(w, http.StatusOK, map[string]string{"imagePath": path})
}

// imageProxyCheckHandler reports whether an image is already cached, without
// triggering a fetch.
func (s *Server) imageProxyCheckHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}

	path, ok, err := s.resolver.CheckCached(r.Context(), hash)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Str("key", hash).
			Msg("cache check failed")
		writeError(w, http.StatusInternalServerError, "cache check failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imagePath": path})
}

// webhookPayload is the body of a content-update delivery.
type webhookPayload struct {
	PageID string `json:"page_id"`
}

// webhookHandler verifies a signed delivery and queues regeneration of the
// named page. Verification happens before the payload is parsed.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.verifier == nil {
		s.rejectWebhook(w, requestID, "webhook receiver not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	sig := r.Header.Get(webhook.HeaderSignature)
	ts := r.Header.Get(webhook.HeaderTimestamp)
	if err := s.verifier.Verify(sig, ts, body); err != nil {
		s.rejectWebhook(w, requestID, err.Error())
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.PageID == "" {
		writeError(w, http.StatusBadRequest, "page_id is required")
		return
	}

	if s.regenerate != nil {
		go s.regenerate(payload.PageID)
	}
	s.log.Info().Str("request_id", requestID).Str("page_id", payload.PageID).
		Msg("regeneration queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) rejectWebhook(w http.ResponseWriter, requestID, reason string) {
	if s.auditLog != nil {
		s.auditLog.LogWebhookRejected(requestID, reason)
	}
	writeError(w, http.StatusUnauthorized, "invalid signature")
}
