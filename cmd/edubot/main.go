package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	serverrun "github.com/CryLyo/EduBot/internal/cmd/server"
	queuesvc "github.com/CryLyo/EduBot/internal/services/queues"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

var version = "dev"

func main() {
	// Local overrides from .env, if present.
	_ = godotenv.Load()

	level := os.Getenv("EDUBOT_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "edubot",
		Short: "EduBot queue server CLI",
		Long:  "EduBot manages waiting lines and question queues for live teaching sessions. This CLI runs the server and performs basic operations against it.",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the queue server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			addr, _ := cmd.Flags().GetString("addr")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			backend, _ := cmd.Flags().GetString("backend")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				ConfigPath: configPath,
				Addr:       addr,
				DataDir:    dataDir,
				Backend:    backend,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to config file (defaults to $CONFIG_PATH)")
	serverStartCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	serverStartCmd.Flags().String("backend", "", "Storage backend: pebble|file (overrides config)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// queue operations against a running server
	queueCmd := &cobra.Command{Use: "queue", Short: "Queue operations"}

	queueListCmd := &cobra.Command{
		Use:   "list",
		Short: "List live queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(apiURL() + "/v1/queues")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			var out struct {
				Queues []queuesvc.QueueInfo `json:"queues"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			if len(out.Queues) == 0 {
				fmt.Println("no live queues")
				return nil
			}
			for _, q := range out.Queues {
				fmt.Printf("%s\t%s\t%d waiting\t%s/%s\n",
					q.Scope, q.Kind, q.Size, q.Names.Guild, q.Names.Channel)
			}
			return nil
		},
	}
	queueCmd.AddCommand(queueListCmd)

	queueMakeCmd := &cobra.Command{
		Use:   "make",
		Short: "Create a queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			guild, _ := cmd.Flags().GetInt64("guild")
			channel, _ := cmd.Flags().GetInt64("channel")
			kind, _ := cmd.Flags().GetString("kind")
			guildName, _ := cmd.Flags().GetString("guildname")
			chanName, _ := cmd.Flags().GetString("channame")
			body, _ := json.Marshal(map[string]any{
				"guild": guild, "channel": channel, "kind": kind,
				"guildname": guildName, "channame": chanName,
			})
			resp, err := http.Post(apiURL()+"/v1/queues", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(os.Stdout, resp.Body)
			fmt.Println()
			return nil
		},
	}
	queueMakeCmd.Flags().Int64("guild", 0, "Guild id")
	queueMakeCmd.Flags().Int64("channel", 0, "Channel id")
	queueMakeCmd.Flags().String("kind", "Review", "Queue kind: Review|MultiReview|Question")
	queueMakeCmd.Flags().String("guildname", "", "Guild display name")
	queueMakeCmd.Flags().String("channame", "", "Channel display name")
	_ = queueMakeCmd.MarkFlagRequired("guild")
	_ = queueMakeCmd.MarkFlagRequired("channel")
	queueCmd.AddCommand(queueMakeCmd)

	queueSaveCmd := &cobra.Command{
		Use:   "save",
		Short: "Persist every live queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAction("/v1/queues/save")
		},
	}
	queueCmd.AddCommand(queueSaveCmd)

	queueLoadCmd := &cobra.Command{
		Use:   "load",
		Short: "Restore every saved queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAction("/v1/queues/load")
		},
	}
	queueCmd.AddCommand(queueLoadCmd)
	rootCmd.AddCommand(queueCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func postAction(path string) error {
	resp, err := http.Post(apiURL()+path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(os.Stdout, resp.Body)
	fmt.Println()
	return nil
}

func apiURL() string {
	if v := os.Getenv("EDUBOT_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
