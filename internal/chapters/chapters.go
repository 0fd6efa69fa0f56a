// Package chapters derives navigable (time, title) chapters from a
// transcript, structurally when possible and generatively as a fallback.
package chapters

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/video"
)

const (
	maxTitleLen    = 30
	targetChapters = 15
	minBucketSize  = 50

	generateTimeout = 60 * time.Second
)

// chatter is the slice of the inference engine the generative strategy needs.
type chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Generator produces chapter lists. The structural strategy buckets the
// transcript; the generative strategy asks the model to author chapters and
// runs only when the structural result is unusable.
type Generator struct {
	client chatter
	model  string
}

// New creates a Generator using the given engine and model name.
func New(client chatter, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate returns chapters sorted by time ascending. It fails only when
// both strategies produce nothing.
func (g *Generator) Generate(ctx context.Context, title string, segments []video.Segment) ([]video.Chapter, error) {
	if chs := Structural(segments); usable(chs) {
		return chs, nil
	}

	slog.Debug("structural chapters unusable, falling back to generative", "title", title)

	chs, err := g.generative(ctx, title, segments)
	if err != nil {
		return nil, fmt.Errorf("generating chapters: %w", err)
	}
	if len(chs) == 0 {
		return nil, fmt.Errorf("no chapters produced")
	}
	return chs, nil
}

// usable requires at least one content chapter besides the closing marker.
func usable(chs []video.Chapter) bool {
	return len(chs) >= 2
}

// Structural partitions the transcript into roughly 15 buckets and titles
// each bucket from its first segment's text. A final "Conclusion" chapter
// marks the last segment's end time.
func Structural(segments []video.Segment) []video.Chapter {
	if len(segments) == 0 {
		return nil
	}

	bucket := len(segments) / targetChapters
	if bucket < minBucketSize {
		bucket = minBucketSize
	}

	var chs []video.Chapter
	for i := 0; i < len(segments); i += bucket {
		title := deriveTitle(segments[i].Text)
		if title == "" {
			continue
		}
		chs = append(chs, video.Chapter{
			Seconds: int(segments[i].Start),
			Title:   title,
		})
	}

	last := segments[len(segments)-1]
	chs = append(chs, video.Chapter{
		Seconds: int(last.End),
		Title:   "Conclusion",
	})

	sort.SliceStable(chs, func(i, j int) bool { return chs[i].Seconds < chs[j].Seconds })
	return chs
}

// leadIns are conversational openers stripped before titling.
var leadIns = []string{
	"so today", "in this video", "welcome to", "welcome back",
	"hey everyone", "hi everyone", "hello everyone", "let's talk about",
	"so", "okay", "ok", "well", "now", "alright", "all right",
	"um", "uh", "and", "but", "hey", "hi", "hello", "today",
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "that": true, "this": true, "these": true, "those": true,
	"it": true, "its": true, "as": true, "by": true, "we": true, "i": true,
	"you": true, "they": true, "he": true, "she": true, "my": true, "your": true,
	"our": true, "so": true, "just": true, "going": true, "gonna": true,
	"really": true, "very": true, "about": true, "what": true, "like": true,
}

// deriveTitle strips lead-ins and stop-words from segment text and takes the
// first three significant words.
func deriveTitle(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))

	stripped := true
	for stripped {
		stripped = false
		for _, lead := range leadIns {
			if strings.HasPrefix(t, lead+" ") || strings.HasPrefix(t, lead+",") {
				t = strings.TrimLeft(strings.TrimPrefix(t, lead), " ,")
				stripped = true
			}
		}
	}

	var words []string
	for _, w := range strings.Fields(t) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if w == "" || stopWords[w] {
			continue
		}
		words = append(words, capitalize(w))
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return ""
	}
	return truncate(strings.Join(words, " "), maxTitleLen)
}

func capitalize(w string) string {
	return strings.ToUpper(w[:1]) + w[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
