package answer

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/video"
)

// citationInstruction pins the timestamp contract the presentation layer
// parses. The (H:MM:SS) form, hour unpadded, is load-bearing.
const citationInstruction = `When you reference a specific moment, cite its timestamp inline in exactly the form (H:MM:SS), for example (0:02:30) or (1:15:04). Use no other timestamp format.`

func transcriptBlock(segments []video.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&sb, "[%s] %s\n", seg.StartFormatted(), seg.Text)
	}
	return sb.String()
}

func textPrompt(question, title string, segments []video.Segment) []engine.Message {
	system := fmt.Sprintf(`You are a video analyst who has just finished watching %q. Answer questions from the transcript below, being specific about what was actually discussed. If the question asks about something the video does not cover, say so.

%s`, title, citationInstruction)

	user := fmt.Sprintf("TRANSCRIPT:\n%s\nQUESTION: %s", transcriptBlock(segments), question)

	return []engine.Message{
		{Role: engine.RoleSystem, Content: system},
		{Role: engine.RoleUser, Content: user},
	}
}

func visualPrompt(question, title string, segments []video.Segment, frames []video.Frame) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a video analyst reviewing %q using both its transcript and frames sampled from the video. The frames are attached in chronological order:`, title)
	sb.WriteString("\n")
	for i, f := range frames {
		fmt.Fprintf(&sb, "- frame %d at %s\n", i+1, video.FormatTimestamp(f.Timestamp))
	}
	sb.WriteString(`
Combine what is visible in the frames with what was said. Be specific about visual details such as colors, objects, people, on-screen text, and actions. If something visual is not clearly shown in the frames, say so.

`)
	sb.WriteString(citationInstruction)
	fmt.Fprintf(&sb, "\n\nTRANSCRIPT:\n%s\nQUESTION: %s", transcriptBlock(segments), question)
	return sb.String()
}

// isTransient reports whether an error is a network-class failure worth one
// retry.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}
