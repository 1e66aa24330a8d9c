// Package placeholder mints and recognizes the opaque tokens substituted for
// credentialed storage URLs in published content.
//
// A placeholder has the form <namespace>-placeholder-<token>, where the token
// is a fixed-length lowercase-hex prefix of the SHA-256 of the canonical
// (credential-stripped) URL. Inline references use the "image" namespace and
// fenced-code-block references use "code", so a global substitution can never
// corrupt a code sample that happens to mention a similar-looking string.
//
// The token alphabet and length are a correctness requirement, not a style
// choice: 12 lowercase hex characters cannot satisfy any rule in the credential
// pattern set, so the verification pass never fires on redacted output.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hfi/notion-redactor/internal/urlkey"
)

// Namespaces for the two reference kinds.
const (
	NamespaceImage = "image"
	NamespaceCode  = "code"
)

const infix = "-placeholder-"

// Generator mints placeholders and finds them in rendered content.
type Generator struct {
	pattern *regexp.Regexp
}

// NewGenerator creates a placeholder generator recognizing both namespaces.
func NewGenerator() *Generator {
	// Rendered content may carry a file extension appended to the token
	// (image loaders do this); Base strips it back off.
	pattern := regexp.MustCompile(fmt.Sprintf(
		`(?:%s|%s)%s[a-f0-9]{%d}(?:\.[a-z0-9]{1,5})?`,
		NamespaceImage, NamespaceCode, infix, urlkey.TokenLen))
	return &Generator{pattern: pattern}
}

// Generate returns the placeholder for a URL in the given namespace. It is a
// pure function of the canonical URL, so the same object reused across posts
// (or re-signed between passes) collapses to the same placeholder.
func (g *Generator) Generate(namespace, rawURL string) string {
	return namespace + infix + urlkey.Token(rawURL)
}

// IsPlaceholder reports whether s contains a valid placeholder.
func (g *Generator) IsPlaceholder(s string) bool {
	return g.pattern.MatchString(s)
}

// FindAll returns every placeholder occurrence in text, in order.
func (g *Generator) FindAll(text string) []string {
	return g.pattern.FindAllString(text, -1)
}

// Base returns the bare token of a placeholder: namespace prefix and any
// trailing extension stripped. Returns "" when p is not a placeholder.
func (g *Generator) Base(p string) string {
	i := strings.Index(p, infix)
	if i < 0 {
		return ""
	}
	token := p[i+len(infix):]
	if j := strings.IndexByte(token, '.'); j >= 0 {
		token = token[:j]
	}
	if len(token) != urlkey.TokenLen {
		return ""
	}
	return token
}
