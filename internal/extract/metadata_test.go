package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTitleFromOEmbed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oembed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"A Great Video"}`))
	}))
	defer ts.Close()

	l := NewTitleLookup(ts.URL)
	if got := l.Title(context.Background(), "abc12345678"); got != "A Great Video" {
		t.Errorf("Title = %q, want %q", got, "A Great Video")
	}
}

func TestTitleFallsBackToWatchPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oembed" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`<html><head><title>A Great Video - YouTube</title></head><body></body></html>`))
	}))
	defer ts.Close()

	l := NewTitleLookup(ts.URL)
	if got := l.Title(context.Background(), "abc12345678"); got != "A Great Video" {
		t.Errorf("Title = %q, want suffix stripped", got)
	}
}

func TestTitleUnknownWhenUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	l := NewTitleLookup(ts.URL)
	if got := l.Title(context.Background(), "abc12345678"); got != "Unknown Video" {
		t.Errorf("Title = %q, want Unknown Video", got)
	}
}
