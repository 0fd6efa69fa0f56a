package answer

import (
	"regexp"
	"strconv"
)

// citationRe matches the inline citation contract: hour unpadded, minutes
// and seconds zero-padded, wrapped in parentheses.
var citationRe = regexp.MustCompile(`\((\d{1,2}):([0-5]\d):([0-5]\d)\)`)

// Citations returns the embedded (H:MM:SS) timestamps in order of
// appearance, converted to seconds.
func Citations(text string) []int {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]int, 0, len(matches))
	for _, m := range matches {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		out = append(out, h*3600+mm*60+s)
	}
	return out
}
