package notion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const pageJSON = `{
	"id": "page-123",
	"created_time": "2024-03-01T09:00:00.000Z",
	"properties": {
		"Name": {"type": "title", "title": [{"plain_text": "Shipping a blog pipeline"}]},
		"Description": {"type": "rich_text", "rich_text": [{"plain_text": "Notes on the build"}]},
		"Published": {"type": "date", "date": {"start": "2024-03-15"}}
	}
}`

const blocksJSON = `{
	"results": [
		{"type": "heading_1", "heading_1": {"rich_text": [{"plain_text": "Intro"}]}},
		{"type": "paragraph", "paragraph": {"rich_text": [
			{"plain_text": "Some "},
			{"plain_text": "bold", "annotations": {"bold": true}},
			{"plain_text": " text."}
		]}},
		{"type": "image", "image": {"type": "file", "file": {"url": "https://prod-files-secure.s3.amazonaws.com/a/b.jpg?X-Amz-Signature=x"}, "caption": [{"plain_text": "a photo"}]}},
		{"type": "code", "code": {"language": "go", "rich_text": [{"plain_text": "fmt.Println(1)"}]}},
		{"type": "divider"}
	],
	"has_more": false
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("secret-token")
	c.SetBaseURL(srv.URL)
	return c, srv
}

func TestClient_GetPage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			t.Errorf("missing auth header")
		}
		if r.Header.Get("Notion-Version") == "" {
			t.Errorf("missing Notion-Version header")
		}
		if !strings.HasPrefix(r.URL.Path, "/pages/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(pageJSON))
	})

	meta, err := c.GetPage(context.Background(), "page-123")
	if err != nil {
		t.Fatalf("GetPage() error: %v", err)
	}
	if meta.Title != "Shipping a blog pipeline" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != "Notes on the build" {
		t.Errorf("description = %q", meta.Description)
	}
	if got := meta.PublishedAt.Format("2006-01-02"); got != "2024-03-15" {
		t.Errorf("published = %s, want the date property", got)
	}
}

func TestClient_ExportMarkdown(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/blocks/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(blocksJSON))
	})

	md, err := c.ExportMarkdown(context.Background(), "page-123")
	if err != nil {
		t.Fatalf("ExportMarkdown() error: %v", err)
	}

	for _, want := range []string{
		"# Intro",
		"Some **bold** text.",
		"![a photo](https://prod-files-secure.s3.amazonaws.com/a/b.jpg?X-Amz-Signature=x)",
		"```go\nfmt.Println(1)\n```",
		"---",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestClient_ExportMarkdown_Paginates(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"results":[{"type":"paragraph","paragraph":{"rich_text":[{"plain_text":"one"}]}}],"has_more":true,"next_cursor":"c2"}`))
			return
		}
		if r.URL.Query().Get("start_cursor") != "c2" {
			t.Errorf("second call missing cursor, got %q", r.URL.Query().Get("start_cursor"))
		}
		w.Write([]byte(`{"results":[{"type":"paragraph","paragraph":{"rich_text":[{"plain_text":"two"}]}}],"has_more":false}`))
	})

	md, err := c.ExportMarkdown(context.Background(), "page-123")
	if err != nil {
		t.Fatalf("ExportMarkdown() error: %v", err)
	}
	if !strings.Contains(md, "one") || !strings.Contains(md, "two") {
		t.Errorf("pagination dropped content:\n%s", md)
	}
	if calls != 2 {
		t.Errorf("made %d calls, want 2", calls)
	}
}

func TestClient_GetPage_UpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if _, err := c.GetPage(context.Background(), "page-123"); err == nil {
		t.Fatal("GetPage() succeeded against a 502 upstream")
	}
}
