package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/simulate"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a mission headlessly with a scripted learner",
	Long: `Run one session on a virtual clock with a scripted learner and print the
standardized result as JSON. The session is submitted to --api when given,
otherwise it is stored in the local database.`,
	RunE: runSimulate,
}

func init() {
	addMissionFlags(simulateCmd)
	simulateCmd.Flags().Float64("accuracy", 0.8, "Chance the learner handles an item correctly (0-1)")
	simulateCmd.Flags().Duration("reaction", simulate.DefaultReaction, "Time an item is in play before the learner acts")
	simulateCmd.Flags().Duration("quit-after", 0, "Quit after this much virtual time (0 = play to the end)")
	simulateCmd.Flags().Uint64("learner-seed", 1, "Seed of the scripted learner")
	simulateCmd.Flags().Bool("full", false, "Print the full report instead of the details only")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	accuracy, _ := cmd.Flags().GetFloat64("accuracy")
	if accuracy < 0 || accuracy > 1 {
		return fmt.Errorf("--accuracy must be between 0 and 1, got %v", accuracy)
	}
	reaction, _ := cmd.Flags().GetDuration("reaction")
	quitAfter, _ := cmd.Flags().GetDuration("quit-after")
	learnerSeed, _ := cmd.Flags().GetUint64("learner-seed")
	full, _ := cmd.Flags().GetBool("full")

	run, err := prepareRun(cmd, logger)
	if err != nil {
		return err
	}
	defer run.Close()

	rep, err := simulate.Run(cmd.Context(), simulate.Options{
		Config:   run.Config,
		Dataset:  run.Dataset,
		Manager:  run.Manager,
		Identity: run.Identity,
		Learner: simulate.Learner{
			Accuracy:  accuracy,
			Reaction:  reaction,
			QuitAfter: quitAfter,
			Seed:      learnerSeed,
		},
		Start:  time.Now(),
		Logger: logger,
	})
	if rep == nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	var out any = rep.Details
	if full {
		out = rep
	}
	if encErr := enc.Encode(out); encErr != nil {
		return encErr
	}
	if err != nil {
		return fmt.Errorf("session %s evaluated but not saved: %w", rep.SessionID, err)
	}
	return nil
}
