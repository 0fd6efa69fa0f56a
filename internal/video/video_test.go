package video

import (
	"reflect"
	"testing"
)

func TestParseID_EquivalentForms(t *testing.T) {
	const want = ID("dQw4w9WgXcQ")
	urls := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
		"dQw4w9WgXcQ",
	}
	for _, u := range urls {
		got, err := ParseID(u)
		if err != nil {
			t.Errorf("ParseID(%q) error: %v", u, err)
			continue
		}
		if got != want {
			t.Errorf("ParseID(%q) = %q, want %q", u, got, want)
		}
	}
}

func TestParseID_Invalid(t *testing.T) {
	urls := []string{
		"",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch",
		"not a url at all",
		"https://youtu.be/",
	}
	for _, u := range urls {
		if _, err := ParseID(u); err == nil {
			t.Errorf("ParseID(%q) succeeded, want error", u)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{5, "0:00:05"},
		{65, "0:01:05"},
		{150, "0:02:30"},
		{3599, "0:59:59"},
		{3600, "1:00:00"},
		{3725.8, "1:02:05"},
		{36000, "10:00:00"},
		{-3, "0:00:00"},
	}
	for _, c := range cases {
		if got := FormatTimestamp(c.seconds); got != c.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestSegmentFormatted(t *testing.T) {
	s := Segment{Start: 150, End: 155.5, Text: "the car pulls up"}
	if got := s.StartFormatted(); got != "0:02:30" {
		t.Errorf("StartFormatted() = %q, want 0:02:30", got)
	}
	if got := s.EndFormatted(); got != "0:02:35" {
		t.Errorf("EndFormatted() = %q, want 0:02:35", got)
	}
}

func TestParseTimestamps(t *testing.T) {
	cases := []struct {
		text string
		want []int
	}{
		{"What color is the car at 2:30?", []int{150}},
		{"compare 0:01:05 and 1:00:00", []int{65, 3600}},
		{"no offsets here", nil},
		{"at 12:05 something happens", []int{725}},
	}
	for _, c := range cases {
		got := ParseTimestamps(c.text)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseTimestamps(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
