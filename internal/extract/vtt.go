package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clipquery/clipquery/internal/video"
)

var (
	vttCueRe    = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})`)
	vttInlineRe = regexp.MustCompile(`<\d{2}:\d{2}:\d{2}\.\d{3}>`)
	vttTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// ParseVTT converts WebVTT subtitle content into transcript segments. Cue
// settings, inline word timestamps, and styling tags are stripped.
func ParseVTT(content string) []video.Segment {
	lines := strings.Split(content, "\n")

	var segs []video.Segment
	for i := 0; i < len(lines); i++ {
		m := vttCueRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		start := vttTimeToSeconds(m[1])
		end := vttTimeToSeconds(m[2])

		var texts []string
		for i++; i < len(lines); i++ {
			line := strings.TrimSpace(lines[i])
			if line == "" || strings.Contains(line, "-->") {
				i--
				break
			}
			if clean := cleanVTTText(line); clean != "" {
				texts = append(texts, clean)
			}
		}

		if len(texts) > 0 {
			segs = append(segs, video.Segment{
				Start: start,
				End:   end,
				Text:  strings.Join(texts, " "),
			})
		}
	}
	return segs
}

// cleanVTTText removes inline timestamps and tags and collapses whitespace.
func cleanVTTText(text string) string {
	text = vttInlineRe.ReplaceAllString(text, "")
	text = vttTagRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func vttTimeToSeconds(ts string) float64 {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.ParseFloat(parts[2], 64)
	return float64(h*3600+m*60) + s
}
