package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mirzasaddi/expenseai/internal/pipeline"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Categorize a CSV file and print the result",
		Long: `Run a single CSV file through the categorization pipeline and print
the resulting analysis as JSON. The result is persisted the same way
an API upload would be.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	p, store, err := createPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Categorizing transactions..."),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	outcome, err := p.Analyze(cmd.Context(), string(data), filepath.Base(path))
	close(done)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	if outcome.Status == pipeline.StatusDegraded {
		slog.Warn("response could not be parsed into structured rows, printing raw text")
	}

	out, err := json.MarshalIndent(outcome.Analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
