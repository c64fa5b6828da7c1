package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khaugen/fragstats/internal/bootstrap"
	"github.com/khaugen/fragstats/internal/config"
	"github.com/khaugen/fragstats/internal/migrations"
)

func init() {
	// Migrate
	var migrateStatus bool
	var migrateRollback bool
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			fmt.Printf("Using DB path: %s\n", cfg.DB.Path)
			defer db.Close()

			if migrateStatus {
				return migrations.Status(db)
			}
			if migrateRollback {
				return migrations.Down(db)
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Roll back the last migration")
	rootCmd.AddCommand(migrateCmd)

	// Token
	var tokenBytes int
	var tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Generate a random API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenBytes < 16 {
				return fmt.Errorf("token must be at least 16 bytes, got %d", tokenBytes)
			}
			buf := make([]byte, tokenBytes)
			if _, err := rand.Read(buf); err != nil {
				return fmt.Errorf("read random bytes: %w", err)
			}
			fmt.Println(base64.RawURLEncoding.EncodeToString(buf))
			return nil
		},
	}
	tokenCmd.Flags().IntVar(&tokenBytes, "bytes", 32, "Number of random bytes in the token")
	rootCmd.AddCommand(tokenCmd)

	// Version
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fragstats %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
}
