package urlkey

import (
	"strings"
	"testing"
)

const signedURL = "https://prod-files-secure.s3.us-west-2.amazonaws.com/abc/def.jpg?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Credential=AKIAT73L2G45EXAMPLE%2F20240101%2Fus-west-2%2Fs3%2Faws4_request&X-Amz-Signature=0abc"

func TestCanonical_StripsQueryAndFragment(t *testing.T) {
	got := Canonical(signedURL)
	want := "https://prod-files-secure.s3.us-west-2.amazonaws.com/abc/def.jpg"
	if got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

func TestHash_StableAcrossResigning(t *testing.T) {
	resigned := "https://prod-files-secure.s3.us-west-2.amazonaws.com/abc/def.jpg?X-Amz-Credential=OTHER&X-Amz-Signature=ffff"
	if Hash(signedURL) != Hash(resigned) {
		t.Error("re-signed URL for the same object produced a different hash")
	}
}

func TestToken_IsPrefixOfCacheKey(t *testing.T) {
	token := Token(signedURL)
	key := CacheKey(signedURL)

	if len(token) != TokenLen {
		t.Errorf("token length = %d, want %d", len(token), TokenLen)
	}
	if !strings.HasPrefix(key, token) {
		t.Errorf("cache key %q does not start with token %q", key, token)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("cache key %q missing source extension", key)
	}
}

func TestExtension(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"https://example.com/a/b.PNG?sig=1", ".png"},
		{"https://example.com/a/b", ""},
		{"https://example.com/a/archive.tar.gz", ".gz"},
		{"https://example.com/a/b.longextension", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := Extension(tc.raw); got != tc.want {
				t.Errorf("Extension(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestHash_NonURLInputIsDeterministic(t *testing.T) {
	if Hash("not a url at all") != Hash("not a url at all") {
		t.Error("hash of raw text is not deterministic")
	}
}
