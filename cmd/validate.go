package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/mission"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a content bank and mission config before publishing",
	Long: `Validate a content bank file against its schema, then report for each
game type how the mission config resolves and whether the bank can support
a full session.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("bank", "", "Content bank JSON file (required)")
	validateCmd.Flags().String("mission", "", "Mission config JSON file")
	validateCmd.Flags().String("difficulty", "", "Difficulty preset, overrides the mission config")
	validateCmd.Flags().String("game", "", "Only check this game type")
	_ = validateCmd.MarkFlagRequired("bank")
}

func runValidate(cmd *cobra.Command, args []string) error {
	bankPath, _ := cmd.Flags().GetString("bank")
	bank, err := content.LoadBank(bankPath)
	if err != nil {
		return err
	}
	cfg, err := loadMissionConfig(cmd)
	if err != nil {
		return err
	}

	games := mission.AllGameTypes()
	if g, _ := cmd.Flags().GetString("game"); g != "" {
		if _, ok := mission.LookupVariant(mission.GameType(g)); !ok {
			return fmt.Errorf("unknown game %q (want one of %s)", g, gameTypeList())
		}
		games = []mission.GameType{mission.GameType(g)}
	}

	fmt.Printf("Bank %s: %d items\n", bankPath, len(bank))
	counts := map[content.ItemType][2]int{}
	for _, it := range bank {
		c := counts[it.Type]
		if it.IsCorrect {
			c[0]++
		} else {
			c[1]++
		}
		counts[it.Type] = c
	}
	for _, t := range content.AllTypes() {
		if c, ok := counts[t]; ok {
			fmt.Printf("  %-14s %3d correct  %3d distractors\n", t, c[0], c[1])
		}
	}
	fmt.Println()

	resolver := mission.NewResolver(nil)
	failed := 0
	for _, gt := range games {
		rc, adjustments := resolver.ResolveWithReport(cfg, gt)
		correct, distractors := dataset.Targets(rc)

		status := "ok"
		var reasons []string
		if err := dataset.Validate(bank, rc); err != nil {
			var insufficient *dataset.ContentInsufficientError
			if !errors.As(err, &insufficient) {
				return err
			}
			status = "insufficient"
			reasons = insufficient.Messages()
			failed++
		}

		fmt.Printf("%s (%s)  %s\n", rc.Variant.Name, gt, status)
		fmt.Printf("  difficulty %s, %d items (%d correct, %d distractors), %s limit, goal %d\n",
			rc.Difficulty, rc.ItemCount, correct, distractors, rc.TimeLimit, rc.RequiredCorrect)
		for _, a := range adjustments {
			fmt.Printf("  adjusted %s: %v -> %v (%s)\n", a.Field, a.Input, a.Resolved, a.Reason)
		}
		for _, r := range reasons {
			fmt.Printf("  - %s\n", r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d game types cannot run with this bank", failed, len(games))
	}
	return nil
}
