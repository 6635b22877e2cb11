package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "missionkit",
	Short: "Mission runtime for language mini-games",
	Long: `MissionKit runs configurable language-learning mini-games: it resolves
mission configs, builds item sets from content banks, scores play and
submits standardized results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MISSIONKIT_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file loaded before running")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides MISSIONKIT_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger on stderr.
func newLogger(cmd *cobra.Command) *slog.Logger {
	cfg := logging.ConfigFromEnv()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Level = lvl
	}
	return logging.New(cfg, os.Stderr)
}

// openStore opens the database: --db names a SQLite file (highest priority),
// otherwise MISSIONKIT_DB_DRIVER and MISSIONKIT_DB decide.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		if err := store.EnsureDir(p); err != nil {
			return nil, err
		}
		return store.Open(p)
	}
	cfg, err := store.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return store.OpenConfig(cmd.Context(), cfg)
}
