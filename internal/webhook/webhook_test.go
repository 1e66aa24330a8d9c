package webhook

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func fixedVerifier(secret string, at time.Time) *Verifier {
	v := NewVerifier(secret, 5*time.Minute)
	v.now = func() time.Time { return at }
	return v
}

func TestVerify_AcceptsValidDelivery(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier("s3cret", now)
	body := []byte(`{"page_id":"post-1"}`)
	ts := fmt.Sprint(now.Unix())

	if err := v.Verify(v.Sign(ts, body), ts, body); err != nil {
		t.Fatalf("Verify() rejected a valid delivery: %v", err)
	}
}

func TestVerify_RejectsTamperedBody(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier("s3cret", now)
	ts := fmt.Sprint(now.Unix())
	sig := v.Sign(ts, []byte(`{"page_id":"post-1"}`))

	err := v.Verify(sig, ts, []byte(`{"page_id":"post-99"}`))
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{}`)
	ts := fmt.Sprint(now.Unix())
	sig := fixedVerifier("other", now).Sign(ts, body)

	err := fixedVerifier("s3cret", now).Verify(sig, ts, body)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestVerify_RejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier("s3cret", now)
	body := []byte(`{}`)
	old := fmt.Sprint(now.Add(-10 * time.Minute).Unix())

	err := v.Verify(v.Sign(old, body), old, body)
	if !errors.Is(err, ErrStaleDelivery) {
		t.Fatalf("Verify() error = %v, want ErrStaleDelivery", err)
	}
}

func TestVerify_MissingHeaders(t *testing.T) {
	v := fixedVerifier("s3cret", time.Unix(1_700_000_000, 0))

	if err := v.Verify("", "123", nil); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("missing signature: got %v", err)
	}
	if err := v.Verify("abc", "", nil); !errors.Is(err, ErrMissingTimestamp) {
		t.Errorf("missing timestamp: got %v", err)
	}
	if err := v.Verify("abc", "not-a-number", nil); err == nil {
		t.Errorf("bad timestamp accepted")
	}
}
