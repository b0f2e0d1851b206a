package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wabridge/internal/bridge"
	"wabridge/internal/config"
	"wabridge/internal/domain"
	"wabridge/internal/health"
	"wabridge/internal/store"
	"wabridge/internal/twilio"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version      = "0.1.0"
	logger       *slog.Logger
	settingsPath string // overridable via --settings flag
	skipNotify   bool
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "wabridge",
		Short: "wabridge: Twilio Conversations WhatsApp auto-reply bridge",
		Long:  "wabridge connects a personal WhatsApp number to a Twilio Conversations service and auto-replies to new inbound messages.",
	}

	root.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "path to settings.yaml (default: ~/.wabridge/settings.yaml)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveSettingsPath returns the settings path from --settings flag or default.
func resolveSettingsPath() string {
	if settingsPath != "" {
		return settingsPath
	}
	return config.DefaultSettingsPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveSettingsPath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("settings file already exists: %s", path)
			}
			if err := config.WriteDefaultSettings(path); err != nil {
				return err
			}
			logger.Info("initialized", "settings", path)
			fmt.Printf("Settings written to %s\n", path)
			fmt.Printf("Export %s, %s, %s, %s, %s and %s before running.\n",
				config.EnvAccountSID, config.EnvAPIKeySID, config.EnvAPIKeySecret,
				config.EnvServiceSID, config.EnvUserNumber, config.EnvTwilioNumber)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send the startup notice, provision the conversation, and poll for replies",
		RunE:  runBridge,
	}
	cmd.Flags().BoolVar(&skipNotify, "skip-notify", false, "skip the one-shot startup notice")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wabridge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wabridge v%s\n", version)
		},
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	// .env is optional; the real environment always wins.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env file")
	}

	cfg, err := config.Load(resolveSettingsPath())
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))

	// Graceful shutdown on signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger.Info("wabridge starting", "version", version, "run_id", runID)

	client := twilio.NewClient(twilio.ClientConfig{
		AccountSID:   cfg.Twilio.AccountSID,
		APIKeySID:    cfg.Twilio.APIKeySID,
		APIKeySecret: cfg.Twilio.APIKeySecret,
		ServiceSID:   cfg.Twilio.ServiceSID,
		Logger:       logger,
	})

	if skipNotify {
		logger.Info("startup notice skipped")
	} else {
		if _, err := bridge.SendStartupNotice(ctx, client, cfg.Twilio.ProxyAddress, cfg.Twilio.UserAddress, cfg.Notify.Body, logger); err != nil {
			return fmt.Errorf("startup notice: %w", err)
		}
	}

	conv, err := bridge.FindOrCreateConversation(ctx, client, cfg.Conversation.FriendlyName, logger)
	if err != nil {
		return fmt.Errorf("provision conversation: %w", err)
	}

	if err := bridge.EnsureParticipant(ctx, client, conv, cfg.Twilio.UserAddress, cfg.Twilio.ProxyAddress, logger); err != nil {
		return fmt.Errorf("provision participant: %w", err)
	}

	var cursorStore domain.CursorStore
	if cfg.Store.Path != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.Store.Path, logger)
		if err != nil {
			return fmt.Errorf("open cursor store: %w", err)
		}
		defer sqlStore.Close()
		cursorStore = sqlStore
		logger.Info("poll cursor persistence enabled", "path", cfg.Store.Path)
	} else {
		cursorStore = store.NewMemory()
	}

	poller := bridge.NewPoller(bridge.PollerConfig{
		API:             client,
		Store:           cursorStore,
		ConversationSID: conv.SID,
		ExternalAddress: cfg.Twilio.UserAddress,
		ReplyAuthor:     cfg.Poll.ReplyAuthor,
		ReplyBody:       cfg.Poll.ReplyBody,
		Interval:        time.Duration(cfg.Poll.IntervalSeconds) * time.Second,
		Logger:          logger,
	})

	if cfg.Health.Enabled {
		healthServer := health.NewServer(health.ServerConfig{
			Host:            cfg.Health.Host,
			Port:            cfg.Health.Port,
			RunID:           runID,
			ConversationSID: conv.SID,
			Stats:           poller.Stats,
			Logger:          logger,
		})
		go func() {
			if err := healthServer.Start(ctx); err != nil {
				logger.Error("liveness server failed", "err", err)
			}
		}()
	}

	return poller.Run(ctx)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
