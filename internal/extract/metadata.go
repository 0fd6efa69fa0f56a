package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/clipquery/clipquery/internal/video"
)

// TitleLookup resolves a video's title without downloading media. The oEmbed
// endpoint is tried first; when it is unavailable the watch page's HTML
// title is used.
type TitleLookup struct {
	baseURL string
	client  *http.Client
}

// NewTitleLookup creates a lookup against the public endpoints. baseURL is
// overridable for tests; pass "" for the default.
func NewTitleLookup(baseURL string) *TitleLookup {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &TitleLookup{baseURL: baseURL, client: &http.Client{}}
}

// Title returns the video title, or "Unknown Video" when neither source can
// provide one. Lookup failures are not fatal to the pipeline.
func (l *TitleLookup) Title(ctx context.Context, id video.ID) string {
	if title, err := l.fromOEmbed(ctx, id); err == nil {
		return title
	}
	if title, err := l.fromWatchPage(ctx, id); err == nil {
		return title
	}
	return "Unknown Video"
}

func (l *TitleLookup) fromOEmbed(ctx context.Context, id video.ID) (string, error) {
	q := url.Values{}
	q.Set("url", watchURL(id))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/oembed?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Title == "" {
		return "", fmt.Errorf("empty title")
	}
	return payload.Title, nil
}

func (l *TitleLookup) fromWatchPage(ctx context.Context, id video.ID) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/watch?v="+string(id), nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	title, err := pageTitle(resp)
	if err != nil {
		return "", err
	}
	title = strings.TrimSuffix(title, " - YouTube")
	if title == "" {
		return "", fmt.Errorf("empty title")
	}
	return title, nil
}

func pageTitle(resp *http.Response) (string, error) {
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title == "" {
		return "", fmt.Errorf("no title element")
	}
	return title, nil
}
