package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"wabridge/internal/config"
	"wabridge/internal/store"
	"wabridge/internal/twilio"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your wabridge setup",
		Long: `Verifies that credentials, phone numbers, settings, the state database,
and Twilio connectivity are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("wabridge doctor v%s\n\n", version)

			passed := 0
			failed := 0

			if err := godotenv.Load(); err == nil {
				printPass("Env file", ".env loaded")
				passed++
			} else {
				printWarn("Env file", "no .env file, using process environment")
			}

			// 1. Required environment variables
			for _, name := range []string{
				config.EnvAccountSID,
				config.EnvAPIKeySID,
				config.EnvAPIKeySecret,
				config.EnvServiceSID,
				config.EnvUserNumber,
				config.EnvTwilioNumber,
			} {
				if os.Getenv(name) == "" {
					printFail(name, "not set")
					failed++
				} else {
					printPass(name, "set")
					passed++
				}
			}

			if failed > 0 {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 2. Settings + addresses
			cfg, err := config.Load(resolveSettingsPath())
			if err != nil {
				printFail("Configuration", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}
			printPass("Configuration", "valid")
			passed++
			printPass("User address", cfg.Twilio.UserAddress)
			passed++
			printPass("Proxy address", cfg.Twilio.ProxyAddress)
			passed++

			// 3. State database (when persistence is configured)
			if cfg.Store.Path != "" {
				s, err := store.NewSQLiteStore(cfg.Store.Path, logger)
				if err != nil {
					printFail("State database", err.Error())
					failed++
				} else {
					s.Close()
					printPass("State database", cfg.Store.Path)
					passed++
				}
			} else {
				printWarn("State database", "not configured (cursor kept in memory)")
			}

			// 4. Twilio reachable with these credentials
			client := twilio.NewClient(twilio.ClientConfig{
				AccountSID:   cfg.Twilio.AccountSID,
				APIKeySID:    cfg.Twilio.APIKeySID,
				APIKeySecret: cfg.Twilio.APIKeySecret,
				ServiceSID:   cfg.Twilio.ServiceSID,
				Logger:       logger,
			})
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			conversations, err := client.ListConversations(ctx)
			if err != nil {
				printFail("Twilio API", err.Error())
				failed++
			} else {
				printPass("Twilio API", fmt.Sprintf("reachable, %d conversation(s) in service", len(conversations)))
				passed++
			}

			fmt.Printf("\n%d passed, %d failed\n", passed, failed)
			return nil
		},
	}
}

func printPass(check, detail string) {
	fmt.Printf("  [ok]   %-24s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [fail] %-24s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [warn] %-24s %s\n", check, detail)
}
