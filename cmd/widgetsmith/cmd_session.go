package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/widgetsmith/internal/server"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the running daemon's sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		addr := cfg.Listen
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("http://" + addr + "/api/sessions")
		if err != nil {
			return fmt.Errorf("query daemon: %w", err)
		}
		defer resp.Body.Close()

		var sessions []server.SessionInfo
		if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTURNS\tSUBSCRIBERS\tCREATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
				s.SessionID,
				s.Turns,
				s.Subscribers,
				s.CreatedAt,
			)
		}
		return w.Flush()
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <id|all>",
	Short: "Remove a session's workspace directory, or all of them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		workspacesDir := filepath.Join(cfg.DataDir, "generated", "workspaces")

		if args[0] == "all" {
			if err := os.RemoveAll(workspacesDir); err != nil {
				return fmt.Errorf("remove workspaces directory: %w", err)
			}
			fmt.Println("All session workspaces cleared.")
			return nil
		}

		// Remove specific workspace (validate path to prevent traversal)
		sessionDir := filepath.Join(workspacesDir, "session_"+args[0])
		resolved, err := filepath.Abs(sessionDir)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}
		absWorkspacesDir, _ := filepath.Abs(workspacesDir)
		if !strings.HasPrefix(resolved, absWorkspacesDir+string(filepath.Separator)) {
			return fmt.Errorf("invalid session ID: %s", args[0])
		}
		if _, err := os.Stat(sessionDir); os.IsNotExist(err) {
			return fmt.Errorf("session not found: %s", args[0])
		}
		if err := os.RemoveAll(sessionDir); err != nil {
			return fmt.Errorf("remove workspace directory: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %s workspace cleared.\n", args[0])
		return nil
	},
}
