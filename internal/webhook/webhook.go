// Package webhook verifies signed delivery notifications from the content
// source. The signature is an HMAC-SHA256 over "<timestamp>:<body>" with a
// shared secret; comparison is constant time and deliveries outside the
// freshness window are rejected before any payload parsing.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	// HeaderSignature carries the hex-encoded HMAC.
	HeaderSignature = "X-Webhook-Signature"
	// HeaderTimestamp carries the sender's unix timestamp.
	HeaderTimestamp = "X-Webhook-Timestamp"

	// DefaultMaxSkew bounds how stale a delivery may be.
	DefaultMaxSkew = 5 * time.Minute
)

var (
	ErrMissingSignature = errors.New("webhook: missing signature")
	ErrMissingTimestamp = errors.New("webhook: missing timestamp")
	ErrBadSignature     = errors.New("webhook: signature mismatch")
	ErrStaleDelivery    = errors.New("webhook: delivery outside freshness window")
)

// Verifier checks webhook deliveries against a shared secret.
type Verifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier creates a verifier. A non-positive maxSkew uses DefaultMaxSkew.
func NewVerifier(secret string, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &Verifier{
		secret:  []byte(secret),
		maxSkew: maxSkew,
		now:     time.Now,
	}
}

// Sign computes the expected signature for a timestamp and body.
func (v *Verifier) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature and freshness for one delivery.
func (v *Verifier) Verify(signature, timestamp string, body []byte) error {
	if signature == "" {
		return ErrMissingSignature
	}
	if timestamp == "" {
		return ErrMissingTimestamp
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("webhook: bad timestamp %q: %w", timestamp, err)
	}
	sent := time.Unix(unix, 0)
	if skew := v.now().Sub(sent); skew > v.maxSkew || skew < -v.maxSkew {
		return ErrStaleDelivery
	}

	expected := v.Sign(timestamp, body)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrBadSignature
	}
	return nil
}
