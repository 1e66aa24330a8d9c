// Package resolver turns placeholders found in rendered content back into
// fetchable URLs.
//
// Resolution is an ordered fallback chain: the post's private mapping file,
// then a substring scan of the durable-cache inventory, then an on-demand
// fetch of the original ephemeral URL that populates the cache. Tiers for a
// single placeholder run strictly in order; a placeholder that exhausts all
// tiers is simply omitted from the result, and the rendering surface shows a
// static placeholder image instead.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hfi/notion-redactor/internal/blobstore"
	"github.com/hfi/notion-redactor/internal/mapping"
	"github.com/hfi/notion-redactor/internal/metrics"
	"github.com/hfi/notion-redactor/internal/urlkey"
	"github.com/hfi/notion-redactor/pkg/placeholder"
)

// fetchTimeout bounds each origin fetch; a timeout counts as a tier miss.
const fetchTimeout = 10 * time.Second

// Resolver resolves placeholders through the tier chain. Safe for concurrent
// use; racing fetches for the same object are collapsed by singleflight and
// made harmless by the cache's idempotent Put.
type Resolver struct {
	mappings mapping.Store
	cache    blobstore.Store
	gen      *placeholder.Generator
	client   *http.Client
	group    singleflight.Group
	tiers    []tier
	log      zerolog.Logger
}

type tier struct {
	name string
	run  func(ctx context.Context, st *state)
}

// state carries one Resolve call through the tier chain.
type state struct {
	postID   string
	local    mapping.Mapping
	pending  []string
	resolved map[string]string
}

// New creates a resolver over the given stores.
func New(mappings mapping.Store, cache blobstore.Store, gen *placeholder.Generator, log zerolog.Logger) *Resolver {
	r := &Resolver{
		mappings: mappings,
		cache:    cache,
		gen:      gen,
		client:   &http.Client{Timeout: fetchTimeout},
		log:      log,
	}
	r.tiers = []tier{
		{name: "local", run: r.localTier},
		{name: "inventory", run: r.inventoryTier},
		{name: "fetch_through", run: r.fetchTier},
	}
	return r
}

// SetHTTPClient replaces the origin-fetch client, for tests.
func (r *Resolver) SetHTTPClient(c *http.Client) {
	r.client = c
}

// Resolve maps each placeholder to a fetchable URL. The returned mapping may
// be partial or empty; callers treat missing entries as "no image", never as
// failure. The only error returned is context cancellation.
func (r *Resolver) Resolve(ctx context.Context, postID string, placeholders []string) (map[string]string, error) {
	st := &state{
		postID:   postID,
		pending:  append([]string(nil), placeholders...),
		resolved: make(map[string]string),
	}

	local, err := r.mappings.Load(ctx, postID)
	switch {
	case err == nil:
		st.local = local
	case errors.Is(err, mapping.ErrNotFound):
		// Normal on a fresh deployment; later tiers take over.
	default:
		r.log.Warn().Err(err).Str("post_id", postID).Msg("mapping store unavailable")
	}

	for _, t := range r.tiers {
		if len(st.pending) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return st.resolved, err
		}
		t.run(ctx, st)
	}

	if len(st.pending) > 0 {
		r.log.Debug().Str("post_id", postID).Strs("unresolved", st.pending).
			Msg("placeholders exhausted all tiers")
	}
	return st.resolved, nil
}

// ResolveAll resolves every placeholder the post's stored mapping names. A
// post with no stored mapping yields an empty result, not an error.
func (r *Resolver) ResolveAll(ctx context.Context, postID string) (map[string]string, error) {
	local, err := r.mappings.Load(ctx, postID)
	if err != nil {
		if errors.Is(err, mapping.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	placeholders := make([]string, 0, len(local))
	for ph := range local {
		placeholders = append(placeholders, ph)
	}
	return r.Resolve(ctx, postID, placeholders)
}

// localTier trusts the stored mapping as-is: the value is returned without
// checking whether the ephemeral URL is still live.
func (r *Resolver) localTier(_ context.Context, st *state) {
	if st.local == nil {
		return
	}
	st.pending = st.filter(func(ph string) (string, bool) {
		url, ok := r.lookupLocal(st.local, ph)
		if ok {
			metrics.RecordTierHit("local")
		}
		return url, ok
	})
}

// inventoryTier scans the durable cache for an object whose key contains the
// placeholder's base token. Best-effort: substring collisions are an accepted
// limitation, and a listing failure is a miss, not an error.
func (r *Resolver) inventoryTier(ctx context.Context, st *state) {
	objects, err := r.cache.List(ctx, "")
	if err != nil {
		r.log.Warn().Err(err).Msg("cache inventory unavailable")
		return
	}
	st.pending = st.filter(func(ph string) (string, bool) {
		base := strings.ToLower(r.gen.Base(ph))
		if base == "" {
			return "", false
		}
		for _, o := range objects {
			if strings.Contains(strings.ToLower(o.Key), base) {
				metrics.RecordTierHit("inventory")
				return o.URL, true
			}
		}
		return "", false
	})
}

// fetchTier fetches the original URL (when the local mapping knows it) and
// caches the bytes under the credential-stripped hash.
func (r *Resolver) fetchTier(ctx context.Context, st *state) {
	if st.local == nil {
		return
	}
	st.pending = st.filter(func(ph string) (string, bool) {
		original, ok := r.lookupLocal(st.local, ph)
		if !ok {
			return "", false
		}
		url, err := r.FetchThrough(ctx, original, urlkey.CacheKey(original))
		if err != nil {
			r.log.Warn().Err(err).Str("post_id", st.postID).Str("placeholder", ph).
				Msg("fetch-through failed")
			return "", false
		}
		metrics.RecordTierHit("fetch_through")
		return url, true
	})
}

// FetchThrough returns the durable URL for an ephemeral original, fetching
// and caching it under key on first use. Concurrent calls for the same key
// share one fetch; the object is written only after the response body has
// been read completely, so an abandoned fetch never leaves a partial entry.
func (r *Resolver) FetchThrough(ctx context.Context, originalURL, key string) (string, error) {
	if o, ok, err := r.cache.Exists(ctx, key); err == nil && ok {
		return o.URL, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if o, ok, err := r.cache.Exists(ctx, key); err == nil && ok {
			return o.URL, nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, originalURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build origin request: %w", err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("origin fetch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("origin fetch: status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read origin body: %w", err)
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		metrics.ProxyFetchesTotal.Inc()
		url, err := r.cache.Put(ctx, key, data, contentType)
		if err != nil {
			return nil, fmt.Errorf("cache populate: %w", err)
		}
		metrics.CacheWritesTotal.Inc()
		return url, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CheckCached reports whether key is already in the durable cache.
func (r *Resolver) CheckCached(ctx context.Context, key string) (string, bool, error) {
	o, ok, err := r.cache.Exists(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return o.URL, true, nil
}

// lookupLocal finds a placeholder in the mapping, tolerating rendered
// placeholders that carry a trailing file extension.
func (r *Resolver) lookupLocal(local mapping.Mapping, ph string) (string, bool) {
	if url, ok := local[ph]; ok {
		return url, true
	}
	base := r.gen.Base(ph)
	if base == "" {
		return "", false
	}
	for k, url := range local {
		if r.gen.Base(k) == base {
			return url, true
		}
	}
	return "", false
}

// filter keeps only the placeholders resolve does not satisfy, recording the
// rest into the result set.
func (st *state) filter(resolve func(ph string) (string, bool)) []string {
	var still []string
	for _, ph := range st.pending {
		if url, ok := resolve(ph); ok {
			st.resolved[ph] = url
		} else {
			still = append(still, ph)
		}
	}
	return still
}
