// Package pattern implements the credential detection rule set.
//
// The same declarative rule table backs both the detection scan and the
// post-redaction verification scan; the two can therefore never drift apart.
// Verification-strength variants differ only in case sensitivity for URL and
// query-fragment shapes. The generic 40-char and 20-char shape rules are
// deliberately broad and will over-match on legitimate base64 or hex content;
// any verification match is treated as fatal by the caller.
package pattern

import (
	"regexp"
)

// Class groups rules by the kind of material they detect.
type Class string

const (
	ClassStorageURL Class = "storage_url"
	ClassFragment   Class = "credential_fragment"
	ClassAccessKey  Class = "access_key_id"
	ClassGeneric    Class = "generic_secret"
	ClassEntropy    Class = "high_entropy"
)

// Rule is one entry in the credential pattern set.
type Rule struct {
	Name   string
	Class  Class
	Detect *regexp.Regexp
	// Verify is the verification-strength variant. Nil means Detect is
	// reused unchanged.
	Verify *regexp.Regexp
}

// Match is a single rule hit inside a text body.
type Match struct {
	Value string
	Start int
	End   int
	Rule  string
	Class Class
}

// RuleSet is the ordered credential pattern set.
type RuleSet struct {
	rules []Rule
}

// urlTail matches the remainder of a URL up to markdown/HTML delimiters.
const urlTail = `[^\s"'<>)\]]*`

// NewRuleSet builds the default ordered rule set.
func NewRuleSet() *RuleSet {
	defs := []struct {
		name            string
		class           Class
		pattern         string
		caseInsensitive bool // verification variant adds (?i)
	}{
		{
			name:  "signed_storage_url",
			class: ClassStorageURL,
			pattern: `https://[A-Za-z0-9.\-]*(?:amazonaws\.com|storage\.googleapis\.com|blob\.core\.windows\.net|notion-static\.com)/` +
				urlTail + `\?` + urlTail + `(?:X-Amz-|AWSAccessKeyId=|GoogleAccessId=|Signature=|sig=)` + urlTail,
			caseInsensitive: true,
		},
		{
			name:            "signed_query_url",
			class:           ClassStorageURL,
			pattern:         `https://[^\s"'<>)\]]+\?` + urlTail + `X-Amz-(?:Credential|Signature|Security-Token|Expires)=` + urlTail,
			caseInsensitive: true,
		},
		{
			name:            "credential_query_fragment",
			class:           ClassFragment,
			pattern:         `(?:X-Amz-Credential|X-Amz-Security-Token|X-Amz-Signature|AWSAccessKeyId|GoogleAccessId|Security-Token|Credential)=[A-Za-z0-9%/+=._\-]+`,
			caseInsensitive: true,
		},
		{
			name:            "aws_access_key_id",
			class:           ClassAccessKey,
			pattern:         `(?:AKIA|ASIA|AGPA|AIDA|AROA|ANPA)[A-Z0-9]{16}`,
			caseInsensitive: true,
		},
		{
			// Could be any base64; over-matching is accepted.
			name:    "generic_40_base64",
			class:   ClassGeneric,
			pattern: `[0-9a-zA-Z/+]{40}`,
		},
		{
			name:    "generic_20_upper",
			class:   ClassGeneric,
			pattern: `[A-Z0-9]{20}`,
		},
	}

	s := &RuleSet{rules: make([]Rule, 0, len(defs))}
	for _, d := range defs {
		r := Rule{
			Name:   d.name,
			Class:  d.class,
			Detect: regexp.MustCompile(d.pattern),
		}
		if d.caseInsensitive {
			r.Verify = regexp.MustCompile(`(?i)` + d.pattern)
		}
		s.rules = append(s.rules, r)
	}
	return s
}

// Rules returns the ordered rule list.
func (s *RuleSet) Rules() []Rule {
	return s.rules
}

// Detect runs the detection-strength scan and returns every match of every
// rule. Matches from different rules may overlap; callers substituting by
// distinct literal value are idempotent regardless.
func (s *RuleSet) Detect(text string) []Match {
	return s.scan(text, false)
}

// Verify runs the verification-strength scan against redacted output.
func (s *RuleSet) Verify(text string) []Match {
	return s.scan(text, true)
}

func (s *RuleSet) scan(text string, verify bool) []Match {
	var matches []Match
	for _, rule := range s.rules {
		re := rule.Detect
		if verify && rule.Verify != nil {
			re = rule.Verify
		}
		for _, idx := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Value: text[idx[0]:idx[1]],
				Start: idx[0],
				End:   idx[1],
				Rule:  rule.Name,
				Class: rule.Class,
			})
		}
	}
	return matches
}
