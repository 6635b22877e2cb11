package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/llm"
	"github.com/abhisek/missionkit/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded coach LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE:  runLLMList,
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one LLM request",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMView,
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost",
	RunE:  runLLMStats,
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. "+llm.PurposeCoachNote+")")
	llmListCmd.Flags().Duration("since", 0, "Only show requests newer than this (e.g. 24h)")
	llmListCmd.Flags().Bool("json", false, "Print JSON lines instead of a table")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}

const rule = "─"

func runLLMList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	purpose, _ := cmd.Flags().GetString("purpose")
	since, _ := cmd.Flags().GetDuration("since")
	asJSON, _ := cmd.Flags().GetBool("json")

	st, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	opts := store.QueryOpts{Limit: limit, Purpose: purpose}
	if since > 0 {
		opts.From = time.Now().Add(-since)
	}
	events, err := st.EventRepo().QueryLLMEvents(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	if len(events) == 0 {
		fmt.Println("No LLM requests recorded.")
		return nil
	}

	fmt.Printf("%-6s  %-19s  %-12s  %-26s  %6s  %6s  %7s  %9s  %s\n",
		"ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "Cost", "OK")
	fmt.Println(strings.Repeat(rule, 108))
	for _, e := range events {
		status := "✓"
		if !e.Success {
			status = "✗ " + truncate(e.ErrorMessage, 40)
		}
		cost := "?"
		if usd, ok := llm.EstimateCost(e.Model, e.InputTokens, e.OutputTokens); ok {
			cost = formatCost(usd)
		}
		fmt.Printf("%-6d  %-19s  %-12s  %-26s  %6d  %6d  %7d  %9s  %s\n",
			e.ID, e.Timestamp.Local().Format(time.DateTime), truncate(e.Purpose, 12), truncate(e.Model, 26),
			e.InputTokens, e.OutputTokens, e.LatencyMs, cost, status)
	}
	return nil
}

func runLLMView(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID %q: %w", args[0], err)
	}

	st, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	e, err := st.EventRepo().GetLLMEvent(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return fmt.Errorf("LLM request %d not found", id)
	}

	fields := [][2]string{
		{"ID", strconv.FormatInt(e.ID, 10)},
		{"Time", e.Timestamp.Local().Format(time.DateTime)},
		{"Provider", e.Provider},
		{"Model", e.Model},
		{"Purpose", e.Purpose},
		{"Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)},
		{"Latency", fmt.Sprintf("%dms", e.LatencyMs)},
		{"Success", strconv.FormatBool(e.Success)},
	}
	if e.ErrorMessage != "" {
		fields = append(fields, [2]string{"Error", e.ErrorMessage})
	}
	for _, f := range fields {
		fmt.Printf("%-10s %s\n", f[0]+":", f[1])
	}

	printBody("REQUEST", e.RequestBody)
	printBody("RESPONSE", e.ResponseBody)
	return nil
}

func printBody(title, body string) {
	sep := strings.Repeat(rule, 60)
	fmt.Printf("\n%s\n%s\n%s\n", sep, title, sep)
	if body == "" {
		fmt.Println("(not captured)")
		return
	}
	var pretty json.RawMessage
	if err := json.Unmarshal([]byte(body), &pretty); err == nil {
		if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			body = string(out)
		}
	}
	fmt.Println(body)
}

func runLLMStats(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	byPurpose, err := st.EventRepo().LLMUsageByPurpose(ctx)
	if err != nil {
		return fmt.Errorf("query usage: %w", err)
	}
	if len(byPurpose) == 0 {
		fmt.Println("No LLM usage recorded yet.")
		return nil
	}
	byModel, err := st.EventRepo().LLMUsageByModel(ctx)
	if err != nil {
		return fmt.Errorf("query model usage: %w", err)
	}

	printUsage("Purpose", byPurpose, func(u store.LLMUsage) string { return u.Purpose })
	fmt.Println()
	printUsage("Model", byModel, func(u store.LLMUsage) string { return u.Model })

	var total float64
	var unpriced []string
	for _, u := range byModel {
		usd, ok := llm.EstimateCost(u.Model, u.InputTokens, u.OutputTokens)
		if !ok {
			unpriced = append(unpriced, u.Model)
			continue
		}
		total += usd
	}
	fmt.Printf("\nEstimated cost: %s", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Printf(" (no pricing for %s)", strings.Join(unpriced, ", "))
	}
	fmt.Println()
	return nil
}

func printUsage(label string, rows []store.LLMUsage, key func(store.LLMUsage) string) {
	fmt.Printf("%-28s  %6s  %10s  %10s  %8s\n", label, "Calls", "Input", "Output", "Avg Ms")
	fmt.Println(strings.Repeat(rule, 70))
	var calls, in, out int
	for _, u := range rows {
		fmt.Printf("%-28s  %6d  %10d  %10d  %8d\n", truncate(key(u), 28), u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Println(strings.Repeat(rule, 70))
	fmt.Printf("%-28s  %6d  %10d  %10d\n", "TOTAL", calls, in, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
