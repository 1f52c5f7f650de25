package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/0xmhha/when-changed/pkg/config"
	"github.com/0xmhha/when-changed/pkg/history"
)

// printHistory prints the n most recent recorded runs, newest first.
func printHistory(cfg *config.Config, n int) error {
	if _, err := os.Stat(cfg.History.DBPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No run history recorded yet.")
			return nil
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}

	store, err := history.NewBoltStore(cfg.History.DBPath, cfg.History.MaxRecords)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close() // nolint:errcheck

	records, err := store.Recent(n)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No run history recorded yet.")
		return nil
	}

	for _, rec := range records {
		fmt.Println(formatRecord(rec))
	}

	return nil
}

// formatRecord renders one run record as a single line.
func formatRecord(rec history.Record) string {
	status := "ok"
	if rec.ExitCode != 0 {
		status = fmt.Sprintf("exit %d", rec.ExitCode)
	}

	duration := rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond)

	return fmt.Sprintf("%s  %-13s  %s  (%s, %s)",
		rec.FinishedAt.Format("2006-01-02 15:04:05"),
		rec.Event,
		strings.Join(rec.Argv, " "),
		status,
		duration,
	)
}
