// Package api exposes the processing pipeline over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipquery/clipquery/internal/answer"
	"github.com/clipquery/clipquery/internal/cache"
	"github.com/clipquery/clipquery/internal/video"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Pipeline is the slice of the coordinator the API layer drives.
type Pipeline interface {
	ProcessVideo(ctx context.Context, url string) (*cache.Record, error)
	AnswerQuestion(ctx context.Context, url, question string) (answer.Result, error)
	Summarize(ctx context.Context, url string) (answer.Result, error)
	Record(id video.ID) (*cache.Record, error)
}

type Deps struct {
	Pipeline Pipeline
	Cache    *cache.Cache
	Token    string
}

// NewHandler returns the HTTP handler for the whole API surface. Everything
// except /health sits behind bearer auth.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/process-video", handleProcessVideo(deps))
		r.Post("/ask-question", handleAskQuestion(deps))
		r.Post("/summarize-video", handleSummarize(deps))
		r.Get("/videos/{id}/transcript", handleTranscript(deps))
		r.Get("/videos/{id}/chapters", handleChapters(deps))
		r.Get("/cache-stats", handleCacheStats(deps))
		r.Delete("/cache", handleClearCache(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type ProcessRequest struct {
	URL string `json:"url"`
}

type AskRequest struct {
	URL      string `json:"url"`
	Question string `json:"question"`
}

// ChapterEntry is one chapter on the wire, with the offset rendered both as
// seconds and as the H:MM:SS display form.
type ChapterEntry struct {
	Time    string `json:"time"`
	Seconds int    `json:"seconds"`
	Title   string `json:"title"`
}

type ProcessResponse struct {
	Success    bool           `json:"success"`
	VideoID    string         `json:"video_id,omitempty"`
	VideoTitle string         `json:"video_title,omitempty"`
	MethodUsed string         `json:"method_used,omitempty"`
	Chapters   []ChapterEntry `json:"chapters,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type AnswerResponse struct {
	Success    bool   `json:"success"`
	Answer     string `json:"answer,omitempty"`
	MethodUsed string `json:"method_used,omitempty"`
	Error      string `json:"error,omitempty"`
}

func handleProcessVideo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			failJSON(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.URL == "" {
			failJSON(w, http.StatusBadRequest, "url is required")
			return
		}

		rec, err := deps.Pipeline.ProcessVideo(r.Context(), req.URL)
		if err != nil {
			failJSON(w, http.StatusUnprocessableEntity, "processing failed: %v", err)
			return
		}

		writeJSON(w, ProcessResponse{
			Success:    true,
			VideoID:    string(rec.ID),
			VideoTitle: rec.Title,
			MethodUsed: rec.Method,
			Chapters:   chapterEntries(rec.Chapters),
		})
	}
}

func handleAskQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			failJSON(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.URL == "" || req.Question == "" {
			failJSON(w, http.StatusBadRequest, "url and question are required")
			return
		}

		res, err := deps.Pipeline.AnswerQuestion(r.Context(), req.URL, req.Question)
		if err != nil {
			failJSON(w, http.StatusUnprocessableEntity, "answering failed: %v", err)
			return
		}

		writeJSON(w, AnswerResponse{
			Success:    true,
			Answer:     res.Text,
			MethodUsed: string(res.Method),
		})
	}
}

func handleSummarize(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			failJSON(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.URL == "" {
			failJSON(w, http.StatusBadRequest, "url is required")
			return
		}

		res, err := deps.Pipeline.Summarize(r.Context(), req.URL)
		if err != nil {
			failJSON(w, http.StatusUnprocessableEntity, "summarization failed: %v", err)
			return
		}

		writeJSON(w, AnswerResponse{
			Success:    true,
			Answer:     res.Text,
			MethodUsed: string(res.Method),
		})
	}
}

func handleTranscript(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := cachedRecord(deps, w, r)
		if !ok {
			return
		}

		writeJSON(w, map[string]any{
			"video_id":    string(rec.ID),
			"video_title": rec.Title,
			"method_used": rec.Method,
			"segments":    rec.Segments,
		})
	}
}

func handleChapters(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := cachedRecord(deps, w, r)
		if !ok {
			return
		}

		writeJSON(w, map[string]any{
			"video_id":    string(rec.ID),
			"video_title": rec.Title,
			"chapters":    chapterEntries(rec.Chapters),
		})
	}
}

// cachedRecord resolves the {id} route parameter to a READY record, writing
// the error response itself when the lookup fails.
func cachedRecord(deps Deps, w http.ResponseWriter, r *http.Request) (*cache.Record, bool) {
	id, err := video.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid video id: %v", err)
		return nil, false
	}

	rec, err := deps.Pipeline.Record(id)
	if err != nil {
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
		return nil, false
	}
	return rec, true
}

func handleCacheStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Cache.Stats())
	}
}

func handleClearCache(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Cache.Clear(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear cache: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "cleared"})
	}
}

func chapterEntries(chs []video.Chapter) []ChapterEntry {
	if len(chs) == 0 {
		return nil
	}
	out := make([]ChapterEntry, len(chs))
	for i, ch := range chs {
		out[i] = ChapterEntry{Time: ch.Time(), Seconds: ch.Seconds, Title: ch.Title}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// failJSON writes the pipeline endpoints' {success:false, error} shape.
func failJSON(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
	})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
