package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server exposing the pipeline as tools plus a
// cache statistics resource.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"clipquery",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("clipquery — ask questions about YouTube videos and navigate them by chapter."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("process_video",
			mcp.WithDescription("Extract and cache a video's transcript and chapters so questions about it answer quickly."),
			mcp.WithString("url", mcp.Description("YouTube video URL or bare video ID"), mcp.Required()),
		),
		mcpProcessVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_video",
			mcp.WithDescription("Answer a question about a video's content, with (H:MM:SS) timestamp citations."),
			mcp.WithString("url", mcp.Description("YouTube video URL or bare video ID"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpAskVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("video_chapters",
			mcp.WithDescription("Return a video's chapter list as H:MM:SS - Title lines."),
			mcp.WithString("url", mcp.Description("YouTube video URL or bare video ID"), mcp.Required()),
		),
		mcpVideoChapters(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"cache://stats",
			"Cache Statistics",
			mcp.WithResourceDescription("Processed video counts broken down by state"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpProcessVideo(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		rec, err := deps.Pipeline.ProcessVideo(ctx, url)
		if err != nil {
			return mcpError(fmt.Sprintf("processing failed: %v", err)), nil
		}

		b, err := json.Marshal(ProcessResponse{
			Success:    true,
			VideoID:    string(rec.ID),
			VideoTitle: rec.Title,
			MethodUsed: rec.Method,
			Chapters:   chapterEntries(rec.Chapters),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskVideo(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		res, err := deps.Pipeline.AnswerQuestion(ctx, url, question)
		if err != nil {
			return mcpError(fmt.Sprintf("answering failed: %v", err)), nil
		}
		return mcpText(res.Text), nil
	}
}

func mcpVideoChapters(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		rec, err := deps.Pipeline.ProcessVideo(ctx, url)
		if err != nil {
			return mcpError(fmt.Sprintf("processing failed: %v", err)), nil
		}
		if len(rec.Chapters) == 0 {
			return mcpText("no chapters available for this video"), nil
		}

		var sb strings.Builder
		for _, ch := range rec.Chapters {
			sb.WriteString(ch.Time() + " - " + ch.Title + "\n")
		}
		return mcpText(sb.String()), nil
	}
}

func mcpResourceStats(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Cache.Stats())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
