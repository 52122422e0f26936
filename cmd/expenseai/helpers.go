package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mirzasaddi/expenseai/internal/config"
	"github.com/mirzasaddi/expenseai/internal/ingest"
	"github.com/mirzasaddi/expenseai/internal/pipeline"
	"github.com/mirzasaddi/expenseai/internal/storage"
)

func databasePath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return config.ExpandPath(dbPath), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "expenseai", "expenseai.db"), nil
}

func openStorage() (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return store, nil
}

func createParser() (*ingest.Parser, error) {
	raw := viper.GetString("ingest.amount_policy")
	if raw == "" {
		raw = "nan"
	}
	policy, err := ingest.ParsePolicy(raw)
	if err != nil {
		return nil, err
	}
	return ingest.NewParser(policy), nil
}

// createPipeline wires the oracle, storage, and parser together from
// configuration. The caller owns the returned storage handle.
func createPipeline() (*pipeline.Pipeline, *storage.SQLiteStorage, error) {
	oracle, err := createOracleClient()
	if err != nil {
		return nil, nil, err
	}

	store, err := openStorage()
	if err != nil {
		return nil, nil, err
	}

	parser, err := createParser()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return pipeline.New(oracle, store, parser, slog.Default()), store, nil
}
