package chapters

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/video"
)

// chapterLineRe matches one authored chapter line: H:MM:SS, a dash or
// en-dash, then the title.
var chapterLineRe = regexp.MustCompile(`(?m)^\s*(\d{1,2}):([0-5]\d):([0-5]\d)\s*[-–]\s*(.+)$`)

func (g *Generator) generative(ctx context.Context, title string, segments []video.Segment) ([]video.Chapter, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	raw, err := g.client.Chat(ctx, g.model, chapterPrompt(title, segments), nil)
	if err != nil {
		return nil, err
	}
	return ParseChapterLines(raw), nil
}

func chapterPrompt(title string, segments []video.Segment) []engine.Message {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString("[" + seg.StartFormatted() + "] " + seg.Text + "\n")
	}

	system := `You segment video transcripts into chapters for navigation. Output 5 to 15 chapter lines and nothing else. Each line must have exactly the form:

H:MM:SS - Title

with the hour unpadded, a short title of at most thirty characters, and no markdown.`

	return []engine.Message{
		{Role: engine.RoleSystem, Content: system},
		{Role: engine.RoleUser, Content: "VIDEO: " + title + "\n\nTRANSCRIPT:\n" + sb.String()},
	}
}

// ParseChapterLines extracts chapters from authored "H:MM:SS - Title" lines.
// Markdown bold markers are stripped, titles bounded, and the result sorted
// by time ascending.
func ParseChapterLines(text string) []video.Chapter {
	text = strings.ReplaceAll(text, "**", "")

	matches := chapterLineRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	chs := make([]video.Chapter, 0, len(matches))
	for _, m := range matches {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		chTitle := truncate(strings.TrimSpace(m[4]), maxTitleLen)
		if chTitle == "" {
			continue
		}
		chs = append(chs, video.Chapter{
			Seconds: h*3600 + mm*60 + s,
			Title:   chTitle,
		})
	}

	sort.SliceStable(chs, func(i, j int) bool { return chs[i].Seconds < chs[j].Seconds })
	return chs
}
