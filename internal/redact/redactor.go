// Package redact rewrites exported markdown so that no credential-bearing
// storage URL or credential fragment survives into the published source tree.
//
// The pipeline is: scan fenced code blocks and substitute in place under the
// code namespace, scan the whole document under the image namespace, scrub any
// bare credential fragments that survived outside full-URL matches, then
// re-scan the output at verification strength. A verification hit is fatal;
// nothing may be written downstream of a failed verification.
package redact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hfi/notion-redactor/internal/pattern"
	"github.com/hfi/notion-redactor/pkg/placeholder"
)

// scrubbed replaces non-URL credential material. Lowercase with hyphens so it
// can never satisfy the pattern set itself.
const scrubbed = "[credential-removed]"

// samplePrefixLen bounds how much of a residual match the verification error
// is allowed to carry.
const samplePrefixLen = 6

// Result is the outcome of a successful redaction.
type Result struct {
	// Text is the sanitized document.
	Text string
	// Mapping maps each minted placeholder to the original URL it stands
	// for. Scoped to this pass; persistence is the caller's job.
	Mapping map[string]string
	// Detected is every raw rule hit, for logging and metrics.
	Detected []pattern.Match
}

// Placeholders returns the minted placeholders in sorted order.
func (r *Result) Placeholders() []string {
	out := make([]string, 0, len(r.Mapping))
	for ph := range r.Mapping {
		out = append(out, ph)
	}
	sort.Strings(out)
	return out
}

// VerificationError reports credential-shaped content that survived
// redaction. It carries pattern classes and fixed-width prefixes only, never
// full matched values.
type VerificationError struct {
	Classes []string
	Samples []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %d residual credential-shaped matches (classes: %s)",
		len(e.Samples), strings.Join(e.Classes, ", "))
}

// Redactor applies the credential pattern set to markdown documents.
type Redactor struct {
	rules   *pattern.RuleSet
	gen     *placeholder.Generator
	entropy *pattern.EntropyVerifier
}

// NewRedactor creates a redactor over the given rule set and generator.
func NewRedactor(rules *pattern.RuleSet, gen *placeholder.Generator) *Redactor {
	return &Redactor{rules: rules, gen: gen}
}

// SetEntropyVerifier adds an entropy check to the verification pass. Entropy
// matches only ever add failures; they never suppress rule matches.
func (r *Redactor) SetEntropyVerifier(e *pattern.EntropyVerifier) {
	r.entropy = e
}

// Redact sanitizes text. On verification failure it returns a
// *VerificationError and no result: the caller must not persist anything.
func (r *Redactor) Redact(text string) (*Result, error) {
	result := &Result{Mapping: make(map[string]string)}
	out := text

	// Code blocks first, spliced back to front so span offsets stay valid.
	spans := pattern.CodeBlocks(out)
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		matches := r.rules.Detect(sp.Content)
		result.Detected = append(result.Detected, matches...)
		replaced := r.substitute(sp.Content, matches, placeholder.NamespaceCode, result.Mapping)
		out = out[:sp.Start] + replaced + out[sp.End:]
	}

	// Whole document under the image namespace.
	matches := r.rules.Detect(out)
	result.Detected = append(result.Detected, matches...)
	out = r.substitute(out, matches, placeholder.NamespaceImage, result.Mapping)

	// Independent scrub pass for fragments surviving outside full-URL
	// matches (partial or obfuscated material).
	out = r.scrub(out)

	if err := r.verify(out); err != nil {
		return nil, err
	}

	result.Text = out
	return result, nil
}

// substitute replaces each distinct matched value: storage URLs become
// namespace placeholders recorded in mapping, everything else becomes the
// inert scrubbed literal. Longer values go first so a fragment inside an
// already-replaced URL can never shift a replacement.
func (r *Redactor) substitute(text string, matches []pattern.Match, namespace string, mapping map[string]string) string {
	urls := distinctValues(matches, true)
	for _, u := range urls {
		ph := r.gen.Generate(namespace, u)
		mapping[ph] = u
		text = strings.ReplaceAll(text, u, ph)
	}
	for _, v := range distinctValues(matches, false) {
		text = strings.ReplaceAll(text, v, scrubbed)
	}
	return text
}

// scrub removes any remaining non-URL credential material from text.
func (r *Redactor) scrub(text string) string {
	for _, v := range distinctValues(r.rules.Detect(text), false) {
		text = strings.ReplaceAll(text, v, scrubbed)
	}
	return text
}

// verify runs the verification-strength scan against redacted output.
func (r *Redactor) verify(text string) error {
	fired := r.rules.Verify(text)
	if r.entropy != nil {
		fired = append(fired, r.entropy.Verify(text)...)
	}
	if len(fired) == 0 {
		return nil
	}

	verr := &VerificationError{}
	seen := make(map[string]bool)
	for _, m := range fired {
		if !seen[string(m.Class)] {
			seen[string(m.Class)] = true
			verr.Classes = append(verr.Classes, string(m.Class))
		}
		verr.Samples = append(verr.Samples, sampleOf(m.Value))
	}
	sort.Strings(verr.Classes)
	return verr
}

// distinctValues returns unique match values, URL-class or not, longest
// first.
func distinctValues(matches []pattern.Match, urlClass bool) []string {
	seen := make(map[string]bool)
	var values []string
	for _, m := range matches {
		isURL := m.Class == pattern.ClassStorageURL
		if isURL != urlClass || seen[m.Value] {
			continue
		}
		seen[m.Value] = true
		values = append(values, m.Value)
	}
	sort.Slice(values, func(i, j int) bool {
		if len(values[i]) != len(values[j]) {
			return len(values[i]) > len(values[j])
		}
		return values[i] < values[j]
	})
	return values
}

func sampleOf(v string) string {
	if len(v) > samplePrefixLen {
		v = v[:samplePrefixLen]
	}
	return v + "****"
}
