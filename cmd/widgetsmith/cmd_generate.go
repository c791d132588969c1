package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/widgetsmith/internal/bundler"
	"github.com/user/widgetsmith/internal/gateway"
	"github.com/user/widgetsmith/internal/notify"
	"github.com/user/widgetsmith/internal/prompt"
	"github.com/user/widgetsmith/internal/runtime"
	"github.com/user/widgetsmith/internal/runtime/tools"
	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/internal/workspace"
	"github.com/user/widgetsmith/pkg/llm"
	"github.com/user/widgetsmith/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("session", "cli", "session id to generate into")
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a widget in-process and print the event stream",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		sessionID, _ := cmd.Flags().GetString("session")
		userPrompt := strings.Join(args, " ")

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}

		registry := state.NewRegistry(workspace.NewManager(cfg.DataDir))

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
		}

		engine, err := prompt.New(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
		if err != nil {
			return fmt.Errorf("create prompt engine: %w", err)
		}

		invoker := bundler.New(cfg.Bundler.Path, time.Duration(cfg.Bundler.TimeoutSeconds)*time.Second)

		rt := runtime.New(registry, engine, provider, invoker, notify.NewRegistry())
		rt.SetMaxToolRounds(cfg.MaxToolRounds)
		if cfg.Brave.APIKey != "" {
			rt.RegisterBaseTool(tools.NewBraveSearch(cfg.Brave.APIKey))
		}
		rt.RegisterBaseTool(tools.NewReadURL())

		gw := gateway.New(registry, 1)
		gw.Queue.SetProcessor(rt.ProcessRun)
		gw.Start(context.Background())
		defer gw.Stop()

		done := make(chan struct{})
		_, err = gw.Submit(types.SessionID(sessionID), userPrompt, gateway.WithOnEvent(func(ev types.Event) {
			printEvent(ev)
			if ev.Type == types.EventDone {
				close(done)
			}
		}))
		if err != nil {
			return fmt.Errorf("submit run: %w", err)
		}

		<-done
		return nil
	},
}

func printEvent(ev types.Event) {
	switch ev.Type {
	case types.EventChunk, types.EventReasoning:
		var text string
		if json.Unmarshal(ev.Payload, &text) == nil {
			fmt.Print(text)
		}
	case types.EventDone:
		fmt.Println()
	default:
		fmt.Printf("\n[%s] %s\n", ev.Type, ev.Payload)
	}
}
