package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mirzasaddi/expenseai/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the JSON API that accepts CSV uploads, categorizes them with
the configured LLM provider, and serves stored analyses for review.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	p, store, err := createPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	cfg := server.Config{
		Addr:          viper.GetString("server.addr"),
		AdminUsername: viper.GetString("admin.username"),
		AdminPassword: viper.GetString("admin.password"),
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
		slog.Warn("admin password not configured, using default credentials")
	}

	srv := server.New(store, p, cfg, slog.Default())
	return srv.Run(ctx)
}
