package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions stored in the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		student, _ := cmd.Flags().GetString("student")
		topic, _ := cmd.Flags().GetString("topic")

		st, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		sessions, err := st.SessionRepo().List(cmd.Context(), store.SessionFilter{
			StudentID: student,
			TopicID:   topic,
			Limit:     limit,
		})
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-12s  %-16s  %6s  %5s  %5s  %s\n",
			"ID", "Created", "Student", "Game", "Score", "✓", "✗", "Performance")
		fmt.Println(strings.Repeat("─", 118))
		for _, s := range sessions {
			perf := "open"
			if s.Completed {
				var d evaluator.StandardizedDetails
				if err := json.Unmarshal(s.Details, &d); err == nil && d.Summary.Performance != "" {
					perf = string(d.Summary.Performance)
				} else {
					perf = "?"
				}
			}
			fmt.Printf("%-36s  %-19s  %-12s  %-16s  %6d  %5d  %5d  %s\n",
				s.ID,
				s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(s.StudentID, 12),
				truncate(s.GameTypeID, 16),
				s.Score,
				s.CorrectCount,
				s.WrongCount,
				perf,
			)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	sessionsCmd.Flags().String("student", "", "Filter by student ID")
	sessionsCmd.Flags().String("topic", "", "Filter by topic ID")
}
