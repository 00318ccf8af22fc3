package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediquest/medscan"
	"github.com/mediquest/medscan/internal/config"
)

var (
	cfgPath string
	dbURL   string
	userID  string
)

var rootCmd = &cobra.Command{
	Use:   "medscan",
	Short: "AI-assisted analysis of medical scans and documents",
	Long: `Medscan analyzes medical images and documents with AI, highlights
notable regions, and keeps a patient's scan history, symptom log, and
wellness score in one place.

Results are informational only and never a diagnosis.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "database URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "patient identifier (overrides config)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration: the file named by --config,
// else the default path, else built-in defaults when no file exists yet.
// Flag overrides are applied last.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		if cfgPath == "" && errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			return nil, err
		}
	}

	if dbURL != "" {
		cfg.Store.DatabaseURL = dbURL
	}
	if userID != "" {
		cfg.Store.UserID = userID
	}
	return cfg, nil
}

// newInstance builds a MedScan from the effective configuration. A warning is
// printed when the configured database is unreachable.
func newInstance(opts ...medscan.Option) (*medscan.MedScan, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	ms, err := medscan.NewWithConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if ms.Offline() {
		fmt.Fprintln(os.Stderr, "warning: database unreachable, records will not persist")
	}
	return ms, nil
}

// storeHint explains why a listing came back empty.
func storeHint() string {
	cfg, err := loadConfig()
	if err == nil && cfg.Store.DatabaseURL == "" {
		return " (configure store.database_url to persist data between runs)"
	}
	return ""
}
