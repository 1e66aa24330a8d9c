// Package notion is the narrow boundary to the Notion content source. The
// pipeline consumes only a page's minimal metadata and a markdown rendering
// of its blocks; everything else about the Notion data model stays on the
// other side of this interface.
package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PageMeta is the minimal page metadata the generator needs.
type PageMeta struct {
	ID          string
	Title       string
	Description string
	PublishedAt time.Time
}

// Source provides page metadata and a markdown export of a page.
type Source interface {
	GetPage(ctx context.Context, pageID string) (PageMeta, error)
	ExportMarkdown(ctx context.Context, pageID string) (string, error)
}

const (
	defaultBaseURL  = "https://api.notion.com/v1"
	defaultVersion  = "2022-06-28"
	defaultPageSize = 100
)

// Client talks to the Notion REST API.
type Client struct {
	baseURL  string
	token    string
	version  string
	pageSize int
	http     *http.Client
}

// NewClient creates a client authenticated with an integration token.
func NewClient(token string) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		token:    token,
		version:  defaultVersion,
		pageSize: defaultPageSize,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// GetPage fetches a page's metadata.
func (c *Client) GetPage(ctx context.Context, pageID string) (PageMeta, error) {
	body, err := c.get(ctx, "/pages/"+url.PathEscape(pageID), nil)
	if err != nil {
		return PageMeta{}, err
	}

	var page struct {
		ID          string                 `json:"id"`
		CreatedTime time.Time              `json:"created_time"`
		Properties  map[string]pageProperty `json:"properties"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return PageMeta{}, fmt.Errorf("decode page: %w", err)
	}

	meta := PageMeta{ID: page.ID, PublishedAt: page.CreatedTime}
	for name, prop := range page.Properties {
		switch prop.Type {
		case "title":
			meta.Title = plainText(prop.Title)
		case "rich_text":
			if strings.EqualFold(name, "description") {
				meta.Description = plainText(prop.RichText)
			}
		case "date":
			if prop.Date != nil && prop.Date.Start != "" {
				if ts, err := time.Parse("2006-01-02", prop.Date.Start); err == nil {
					meta.PublishedAt = ts
				} else if ts, err := time.Parse(time.RFC3339, prop.Date.Start); err == nil {
					meta.PublishedAt = ts
				}
			}
		}
	}
	return meta, nil
}

// ExportMarkdown renders the page's block tree as markdown. Image blocks emit
// the ephemeral file URL exactly as Notion returns it; redaction happens
// downstream, never here.
func (c *Client) ExportMarkdown(ctx context.Context, pageID string) (string, error) {
	var sb strings.Builder
	cursor := ""
	for {
		query := url.Values{"page_size": {fmt.Sprint(c.pageSize)}}
		if cursor != "" {
			query.Set("start_cursor", cursor)
		}
		body, err := c.get(ctx, "/blocks/"+url.PathEscape(pageID)+"/children", query)
		if err != nil {
			return "", err
		}

		var list struct {
			Results    []block `json:"results"`
			HasMore    bool    `json:"has_more"`
			NextCursor string  `json:"next_cursor"`
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("decode block list: %w", err)
		}

		for _, b := range list.Results {
			writeBlock(&sb, b)
		}
		if !list.HasMore || list.NextCursor == "" {
			break
		}
		cursor = list.NextCursor
	}
	return sb.String(), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notion request %s: status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type pageProperty struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
	Date     *struct {
		Start string `json:"start"`
	} `json:"date"`
}

type richText struct {
	PlainText   string `json:"plain_text"`
	Annotations struct {
		Bold   bool `json:"bold"`
		Italic bool `json:"italic"`
		Code   bool `json:"code"`
	} `json:"annotations"`
}

type textHolder struct {
	RichText []richText `json:"rich_text"`
}

type fileRef struct {
	URL string `json:"url"`
}

type block struct {
	Type      string      `json:"type"`
	Paragraph *textHolder `json:"paragraph"`
	Heading1  *textHolder `json:"heading_1"`
	Heading2  *textHolder `json:"heading_2"`
	Heading3  *textHolder `json:"heading_3"`
	Bulleted  *textHolder `json:"bulleted_list_item"`
	Numbered  *textHolder `json:"numbered_list_item"`
	Quote     *textHolder `json:"quote"`
	Code      *struct {
		RichText []richText `json:"rich_text"`
		Language string     `json:"language"`
	} `json:"code"`
	Image *struct {
		Type     string     `json:"type"`
		File     *fileRef   `json:"file"`
		External *fileRef   `json:"external"`
		Caption  []richText `json:"caption"`
	} `json:"image"`
}

func writeBlock(sb *strings.Builder, b block) {
	switch b.Type {
	case "paragraph":
		if b.Paragraph != nil {
			sb.WriteString(markdownText(b.Paragraph.RichText) + "\n\n")
		}
	case "heading_1":
		if b.Heading1 != nil {
			sb.WriteString("# " + plainText(b.Heading1.RichText) + "\n\n")
		}
	case "heading_2":
		if b.Heading2 != nil {
			sb.WriteString("## " + plainText(b.Heading2.RichText) + "\n\n")
		}
	case "heading_3":
		if b.Heading3 != nil {
			sb.WriteString("### " + plainText(b.Heading3.RichText) + "\n\n")
		}
	case "bulleted_list_item":
		if b.Bulleted != nil {
			sb.WriteString("- " + markdownText(b.Bulleted.RichText) + "\n")
		}
	case "numbered_list_item":
		if b.Numbered != nil {
			sb.WriteString("1. " + markdownText(b.Numbered.RichText) + "\n")
		}
	case "quote":
		if b.Quote != nil {
			sb.WriteString("> " + markdownText(b.Quote.RichText) + "\n\n")
		}
	case "divider":
		sb.WriteString("---\n\n")
	case "code":
		if b.Code != nil {
			sb.WriteString("```" + b.Code.Language + "\n")
			sb.WriteString(plainText(b.Code.RichText))
			sb.WriteString("\n```\n\n")
		}
	case "image":
		if b.Image == nil {
			return
		}
		var src string
		switch {
		case b.Image.File != nil && b.Image.File.URL != "":
			src = b.Image.File.URL
		case b.Image.External != nil && b.Image.External.URL != "":
			src = b.Image.External.URL
		}
		if src != "" {
			sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", plainText(b.Image.Caption), src))
		}
	}
}

func plainText(parts []richText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

func markdownText(parts []richText) string {
	var sb strings.Builder
	for _, p := range parts {
		s := p.PlainText
		if p.Annotations.Code {
			s = "`" + s + "`"
		}
		if p.Annotations.Bold {
			s = "**" + s + "**"
		}
		if p.Annotations.Italic {
			s = "*" + s + "*"
		}
		sb.WriteString(s)
	}
	return sb.String()
}
