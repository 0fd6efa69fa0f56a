package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/clipquery/clipquery/internal/video"
)

// CaptionsAPI fetches captions directly from the platform's timedtext
// endpoint. Cheapest and fastest method, but many videos have no caption
// track reachable this way.
type CaptionsAPI struct {
	baseURL string
	client  *http.Client
}

// NewCaptionsAPI creates the method against the public endpoint. baseURL is
// overridable for tests; pass "" for the default.
func NewCaptionsAPI(baseURL string) *CaptionsAPI {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &CaptionsAPI{baseURL: baseURL, client: &http.Client{}}
}

func (c *CaptionsAPI) Name() string { return MethodCaptionsAPI }

// Extract fetches the English caption track, preferring a manual track and
// falling back to the auto-generated one.
func (c *CaptionsAPI) Extract(ctx context.Context, id video.ID) ([]video.Segment, error) {
	segs, err := c.fetchTrack(ctx, id, false)
	if err == nil && len(segs) > 0 {
		return segs, nil
	}

	segs, asrErr := c.fetchTrack(ctx, id, true)
	if asrErr == nil && len(segs) > 0 {
		return segs, nil
	}

	if err == nil {
		err = fmt.Errorf("empty caption track")
	}
	return nil, fmt.Errorf("no caption track available: %w", err)
}

func (c *CaptionsAPI) fetchTrack(ctx context.Context, id video.ID, autoGenerated bool) ([]video.Segment, error) {
	q := url.Values{}
	q.Set("v", string(id))
	q.Set("lang", "en")
	q.Set("fmt", "json3")
	if autoGenerated {
		q.Set("kind", "asr")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/timedtext?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading captions: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	return parseTimedText(body)
}

// timedText mirrors the json3 caption payload.
type timedText struct {
	Events []timedTextEvent `json:"events"`
}

type timedTextEvent struct {
	StartMs    int64            `json:"tStartMs"`
	DurationMs int64            `json:"dDurationMs"`
	Segs       []timedTextChunk `json:"segs"`
}

type timedTextChunk struct {
	UTF8 string `json:"utf8"`
}

func parseTimedText(body []byte) ([]video.Segment, error) {
	var tt timedText
	if err := json.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("decoding timedtext: %w", err)
	}

	var segs []video.Segment
	for _, ev := range tt.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		start := float64(ev.StartMs) / 1000
		segs = append(segs, video.Segment{
			Start: start,
			End:   start + float64(ev.DurationMs)/1000,
			Text:  text,
		})
	}
	return segs, nil
}
