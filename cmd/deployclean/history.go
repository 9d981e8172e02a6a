package main

import (
	"fmt"

	"deployclean/internal/history"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyAll   bool
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the local audit history",
	Long: `Show recent deactivate, delete and clean actions recorded in the audit
history database (--db, DEPLOYCLEAN_DB or db_path), newest first.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "Maximum number of records")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Show every repository, not only the configured one")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print records as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("history is disabled; set --db, DEPLOYCLEAN_DB or db_path")
	}

	hist, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer hist.Close()

	owner, repo := cfg.Owner, cfg.Repo
	if historyAll {
		owner, repo = "", ""
	}

	records, err := hist.Recent(cmd.Context(), owner, repo, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	return renderHistory(cmd.OutOrStdout(), records)
}
