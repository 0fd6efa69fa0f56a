package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/clipquery/clipquery/internal/answer"
	"github.com/clipquery/clipquery/internal/api"
	"github.com/clipquery/clipquery/internal/cache"
	"github.com/clipquery/clipquery/internal/chapters"
	"github.com/clipquery/clipquery/internal/classify"
	"github.com/clipquery/clipquery/internal/config"
	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/extract"
	"github.com/clipquery/clipquery/internal/frames"
	"github.com/clipquery/clipquery/internal/pipeline"
	"github.com/clipquery/clipquery/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the clipquery server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running clipquery server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show clipquery system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "clipquery.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "clipquery version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Bearer token shared between server and CLI.
	apiToken, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("clipquery is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("clipquery is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	methodTimeout, err := time.ParseDuration(cfg.Extract.MethodTimeout)
	if err != nil {
		slog.Warn("invalid extraction timeout, using default 2m", "value", cfg.Extract.MethodTimeout, "error", err)
		methodTimeout = 2 * time.Minute
	}

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	videoCache, err := cache.New(store)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}

	// Model API client.
	eng := engine.NewOpenAI(cfg.Model.BaseURL, cfg.Model.APIKey)
	if !eng.IsRunning(ctx) {
		slog.Warn("model API not reachable, requests needing it will fail", "base_url", cfg.Model.BaseURL)
	}

	// Build the processing pipeline.
	workDir := filepath.Join(cfg.Storage.DataDir, "work")
	runner := extract.NewRunner(cfg.Tools.YTDLP, workDir)
	chain := extract.NewChain(methodTimeout,
		extract.NewCaptionsAPI(""),
		extract.NewCaptionFile(runner),
		extract.NewSpeech(runner, eng, cfg.Model.TranscribeModel),
	)
	titles := extract.NewTitleLookup("")
	coordinator := pipeline.New(
		videoCache,
		chain,
		titles,
		classify.New(eng, cfg.Model.ChatModel),
		frames.New(runner, cfg.Tools.FFmpeg, workDir, cfg.Frames.IntervalSec, cfg.Frames.MaxFrames),
		answer.New(eng, cfg.Model.ChatModel, cfg.Model.VisionModel),
		chapters.New(eng, cfg.Model.ChatModel),
	)

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Pipeline: coordinator,
		Cache:    videoCache,
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.Deps{
		Pipeline: coordinator,
		Cache:    videoCache,
		Token:    apiToken,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "clipquery listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("clipquery is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop clipquery (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to clipquery (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Show models.
	printStatus("Model API", "%s", cfg.Model.BaseURL)
	printStatus("Chat model", "%s", cfg.Model.ChatModel)
	printStatus("Vision model", "%s", cfg.Model.VisionModel)
	printStatus("Transcribe model", "%s", cfg.Model.TranscribeModel)

	// Show cache stats if server is running.
	apiToken, tokenErr := config.GetAPIToken(cfg.Storage.DataDir)
	if tokenErr == nil && resp != nil && resp.StatusCode == 200 {
		statsResp, err := apiGet(client, serverURL+"/cache-stats", apiToken)
		if err == nil {
			var stats struct {
				Total   int `json:"total"`
				Ready   int `json:"ready"`
				Pending int `json:"pending"`
				Failed  int `json:"failed"`
			}
			if json.NewDecoder(statsResp.Body).Decode(&stats) == nil {
				printStatus("Cached videos", "%d (%d ready, %d pending, %d failed)",
					stats.Total, stats.Ready, stats.Pending, stats.Failed)
			}
			statsResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
