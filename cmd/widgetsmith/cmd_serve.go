package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/widgetsmith/internal/bundler"
	"github.com/user/widgetsmith/internal/gateway"
	"github.com/user/widgetsmith/internal/notify"
	"github.com/user/widgetsmith/internal/prompt"
	"github.com/user/widgetsmith/internal/runtime"
	"github.com/user/widgetsmith/internal/runtime/tools"
	"github.com/user/widgetsmith/internal/server"
	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/workspace"
	"github.com/user/widgetsmith/pkg/llm"
	"github.com/user/widgetsmith/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the widgetsmith daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "widgetsmith.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Session state
	workspaces := workspace.NewManager(cfg.DataDir)
	registry := state.NewRegistry(workspaces)

	// LLM provider; left nil without a key so runs fail with a clear
	// configuration error instead of 401s from the API.
	var provider llm.Provider
	if cfg.LLM.APIKey != "" {
		provider = openai.New(&llm.Config{
			BaseURL:         cfg.LLM.BaseURL,
			APIKey:          cfg.LLM.APIKey,
			Model:           cfg.LLM.Model,
			MaxTokens:       cfg.LLM.MaxTokens,
			Temperature:     cfg.LLM.Temperature,
			ReasoningEffort: cfg.LLM.ReasoningEffort,
		})
	} else {
		slog.Warn("no LLM API key configured; generation requests will fail")
	}

	// Prompt engine
	engine, err := prompt.New(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		return fmt.Errorf("create prompt engine: %w", err)
	}

	// Bundler
	invoker := bundler.New(cfg.Bundler.Path, time.Duration(cfg.Bundler.TimeoutSeconds)*time.Second)

	// Notifiers
	notifiers := notify.NewRegistry()
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, "")
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		notifiers.Register(tg)
		slog.Info("telegram notifier enabled", "chat_id", cfg.Telegram.ChatID)
	}

	// Runtime
	rt := runtime.New(registry, engine, provider, invoker, notifiers)
	rt.SetMaxToolRounds(cfg.MaxToolRounds)
	if cfg.Brave.APIKey != "" {
		rt.RegisterBaseTool(tools.NewBraveSearch(cfg.Brave.APIKey))
	}
	rt.RegisterBaseTool(tools.NewReadURL())

	// Gateway
	gw := gateway.New(registry, int64(cfg.MaxConcurrent))
	gw.Queue.SetProcessor(rt.ProcessRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	// HTTP server
	srv := server.New(registry, gw, workspaces.GeneratedRoot())
	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv,
	}
	go func() {
		slog.Info("http server started", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	slog.Info("widgetsmith started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"listen", cfg.Listen,
		"max_concurrent", cfg.MaxConcurrent,
		"max_tool_rounds", cfg.MaxToolRounds,
		"llm_model", cfg.LLM.Model,
		"bundler", cfg.Bundler.Path,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
