package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/preview"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Play a mission in the terminal",
	Long: `Play a mission against a content bank in the terminal, exactly as a
learner would get it: same config resolution, sampling, scoring and
evaluation. The result is stored in the local database unless --api is set.

The game owns the terminal, so logs are dropped unless --log-file is given.`,
	RunE: runPreview,
}

func init() {
	addMissionFlags(previewCmd)
	previewCmd.Flags().String("log-file", "", "Append logs to this file while the game runs")
}

// previewLogger returns a logger that never writes to the terminal: the
// --log-file when set, otherwise a discarding one.
func previewLogger(cmd *cobra.Command) (*slog.Logger, func() error, error) {
	path, _ := cmd.Flags().GetString("log-file")
	if path == "" {
		return logging.Discard(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	cfg := logging.ConfigFromEnv()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Level = lvl
	}
	return logging.New(cfg, f), f.Close, nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := previewLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	run, err := prepareRun(cmd, logger)
	if err != nil {
		return err
	}
	defer run.Close()

	details, err := preview.Run(cmd.Context(), run.Config, run.Dataset, run.Manager, run.Identity, logger)
	if err != nil && details.Summary.Performance == "" {
		return err
	}

	fmt.Printf("%s: score %d, accuracy %.1f%%, %s\n",
		run.Config.Variant.Name, details.Summary.ScoreRaw, details.Summary.Accuracy, details.Summary.Performance)
	if err != nil {
		return fmt.Errorf("result not saved: %w", err)
	}
	return nil
}
