package video

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ID is the canonical identity of a video, stable across equivalent URL
// forms (watch, short, embed, shorts, live links all collapse to the same
// ID). Construct one with ParseID; an ID is immutable once computed.
type ID string

func (id ID) String() string { return string(id) }

// idPattern matches the 11-character video identifier YouTube uses.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseID extracts the canonical video ID from any supported URL form.
// A bare 11-character ID is accepted as-is.
func ParseID(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty video URL")
	}
	if idPattern.MatchString(raw) {
		return ID(raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing video URL: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		// Short link: the ID is the first path element.
		if id := firstPathElement(u.Path); idPattern.MatchString(id) {
			return ID(id), nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		// Watch link carries the ID in the query string.
		if id := u.Query().Get("v"); idPattern.MatchString(id) {
			return ID(id), nil
		}
		// Embed, shorts, live, and /v/ links carry it in the path.
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if id := firstPathElement(rest); idPattern.MatchString(id) {
					return ID(id), nil
				}
			}
		}
	}

	return "", fmt.Errorf("no video ID found in URL %q", raw)
}

func firstPathElement(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// Segment is a time-bounded span of transcript text. Start and End are
// seconds from the beginning of the video, with Start < End.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// StartFormatted renders the segment start as H:MM:SS.
func (s Segment) StartFormatted() string { return FormatTimestamp(s.Start) }

// EndFormatted renders the segment end as H:MM:SS.
func (s Segment) EndFormatted() string { return FormatTimestamp(s.End) }

// Chapter is a named navigation point derived from content. Seconds is the
// chapter start offset; Title is bounded (callers truncate, see chapters
// package).
type Chapter struct {
	Seconds int    `json:"seconds"`
	Title   string `json:"title"`
}

// Time renders the chapter offset as H:MM:SS.
func (c Chapter) Time() string { return FormatTimestamp(float64(c.Seconds)) }

// Frame is a single sampled video frame with its offset in seconds.
type Frame struct {
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path,omitempty"`
	Data      []byte  `json:"-"`
}

// FormatTimestamp renders seconds as H:MM:SS with unpadded hours and
// zero-padded minutes/seconds. This rendering is a wire contract: the
// presentation layer parses it with a fixed pattern.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// timestampPattern matches H:MM:SS and MM:SS offsets in free text.
var timestampPattern = regexp.MustCompile(`\b(?:(\d{1,2}):)?([0-5]?\d):([0-5]\d)\b`)

// ParseTimestamps returns the second offsets of all H:MM:SS or M:SS
// timestamps mentioned in text, in order of appearance.
func ParseTimestamps(text string) []int {
	var out []int
	for _, m := range timestampPattern.FindAllStringSubmatch(text, -1) {
		var h, mi, s int
		if m[1] != "" {
			fmt.Sscanf(m[1], "%d", &h)
		}
		fmt.Sscanf(m[2], "%d", &mi)
		fmt.Sscanf(m[3], "%d", &s)
		out = append(out, h*3600+mi*60+s)
	}
	return out
}
