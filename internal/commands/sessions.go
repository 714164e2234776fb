package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/client"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/parser"
	"github.com/balkashynov/mentalbank/internal/tui"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session", "s"},
	Short:   "List, inspect, edit and delete sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List sessions with totals",
	Long: `List sessions, newest first, with a summary over every match.

Dates accept today, yesterday, yyyy-mm-dd or dd/mm/yyyy; --to covers the whole day.`,
	Args: cobra.NoArgs,
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		q, err := sessionQueryFromFlags(cmd, time.Now())
		if err != nil {
			return err
		}

		result, err := s.client.ListSessions(ctx, q)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		}

		if len(result.Sessions) == 0 {
			fmt.Println("No sessions found. Use 'mbb start <task-id>' to track some time.")
			return nil
		}

		fmt.Printf("%-36s %-30s %-16s %8s %9s %s\n", "ID", "TASK", "STARTED", "DURATION", "EARNINGS", "STATE")
		fmt.Println(strings.Repeat("-", 112))
		for _, row := range result.Sessions {
			fmt.Println(formatSessionRow(row))
		}

		sum := result.Summary
		fmt.Println(strings.Repeat("-", 112))
		fmt.Printf("%d sessions · %s tracked · $%.2f earned · avg %s at $%.2f/h\n",
			sum.TotalSessions,
			tui.FormatDuration(time.Duration(sum.TotalSeconds)*time.Second),
			sum.TotalEarningsUSD,
			tui.FormatDuration(time.Duration(sum.AverageSessionSeconds)*time.Second),
			sum.AverageHourlyRateUSD)
		if p := result.Pagination; p.HasMore {
			fmt.Printf("Showing %d-%d of %d. Use --offset %d for more.\n", p.Offset+1, p.Offset+len(result.Sessions), p.Total, p.Offset+p.Limit)
		}
		return nil
	}),
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session",
	Args:  cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		view, err := s.client.GetSession(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Session %s%s\n", view.ID, taskSuffix(view.Session))
		if view.Category != nil {
			fmt.Printf("  Category: %s\n", view.Category.Name)
		}
		fmt.Printf("  Started:  %s\n", view.StartedAt.Local().Format("Jan 02, 2006 15:04:05"))
		if view.EndedAt != nil {
			fmt.Printf("  Ended:    %s\n", view.EndedAt.Local().Format("Jan 02, 2006 15:04:05"))
		}
		rate := "none"
		if view.HourlyRateUSD != nil {
			rate = tui.FormatUSD(view.HourlyRateUSD) + "/h"
		}
		fmt.Printf("  Rate:     %s\n", rate)

		if view.IsActive {
			var seconds int64
			if view.CurrentDurationSeconds != nil {
				seconds = *view.CurrentDurationSeconds
			}
			fmt.Printf("  Elapsed:  %s (active)\n", tui.FormatClock(seconds))
			fmt.Printf("  Earnings: %s so far\n", tui.FormatUSD(view.CurrentEarningsUSD))
		} else {
			var seconds int64
			if view.DurationSeconds != nil {
				seconds = *view.DurationSeconds
			}
			fmt.Printf("  Duration: %s\n", tui.FormatClock(seconds))
			fmt.Printf("  Earnings: %s\n", tui.FormatUSD(view.EarningsUSD))
		}
		if view.Notes != "" {
			fmt.Printf("  Notes:    %s\n", view.Notes)
		}
		return nil
	}),
}

var sessionsEditCmd = &cobra.Command{
	Use:   "edit <session-id>",
	Short: "Change a session's notes, rate or end time",
	Long: `Change a session's notes, rate or end time. Earnings are recalculated.

Examples:
  mbb sessions edit 3f2c... --note "pairing with Sam"
  mbb sessions edit 3f2c... --rate 120
  mbb sessions edit 3f2c... --ended-at 2025-03-14T17:30:00Z`,
	Args: cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		var req api.PatchRequest
		if cmd.Flags().Changed("note") {
			note, _ := cmd.Flags().GetString("note")
			req.Notes = &note
		}
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			req.HourlyRateUSD = &rate
		}
		if raw, _ := cmd.Flags().GetString("ended-at"); raw != "" {
			endedAt, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("invalid --ended-at %q, use RFC 3339 (2006-01-02T15:04:05Z)", raw)
			}
			req.EndedAt = &endedAt
		}

		updated, err := s.client.UpdateSession(ctx, args[0], req)
		if err != nil {
			return err
		}
		fmt.Printf("✏️  Updated session %s\n", updated.ID)
		fmt.Printf("Earnings: %s\n", tui.FormatUSD(updated.EarningsUSD))
		return nil
	}),
}

var sessionsRemoveCmd = &cobra.Command{
	Use:     "rm <session-id>",
	Aliases: []string{"delete"},
	Short:   "Delete an ended session",
	Args:    cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		if err := s.client.DeleteSession(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑️  Deleted session %s\n", args[0])
		return nil
	}),
}

func addSessionFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("task", "", "Filter by task id")
	cmd.Flags().String("category", "", "Filter by category id")
	cmd.Flags().Bool("active", false, "Only active sessions")
	cmd.Flags().String("from", "", "Sessions started on or after this day")
	cmd.Flags().String("to", "", "Sessions started on or before this day")
	cmd.Flags().Int("limit", 0, "Page size (server default when 0)")
	cmd.Flags().Int("offset", 0, "Rows to skip")
}

func sessionQueryFromFlags(cmd *cobra.Command, now time.Time) (client.SessionQuery, error) {
	var q client.SessionQuery
	q.TaskID, _ = cmd.Flags().GetString("task")
	q.CategoryID, _ = cmd.Flags().GetString("category")
	q.ActiveOnly, _ = cmd.Flags().GetBool("active")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	q.Offset, _ = cmd.Flags().GetInt("offset")

	from, _ := cmd.Flags().GetString("from")
	start, err := parser.ParseDateBound(from, false, now)
	if err != nil {
		return q, err
	}
	to, _ := cmd.Flags().GetString("to")
	end, err := parser.ParseDateBound(to, true, now)
	if err != nil {
		return q, err
	}
	q.StartDate, q.EndDate = start, end
	return q, nil
}

func formatSessionRow(row models.Session) string {
	title := row.TaskID
	if row.Task != nil {
		title = row.Task.Title
	}
	if len(title) > 28 {
		title = title[:25] + "..."
	}

	state := "ended"
	duration := "-"
	if row.IsActive {
		state = "active"
	} else if row.DurationSeconds != nil {
		duration = tui.FormatClock(*row.DurationSeconds)
	}

	return fmt.Sprintf("%-36s %-30s %-16s %8s %9s %s",
		row.ID,
		title,
		row.StartedAt.Local().Format("2006-01-02 15:04"),
		duration,
		tui.FormatUSD(row.EarningsUSD),
		state)
}

func init() {
	addSessionFilterFlags(sessionsListCmd)
	sessionsListCmd.Flags().Bool("json", false, "Output as JSON")

	sessionsEditCmd.Flags().String("note", "", "Replace the session notes")
	sessionsEditCmd.Flags().Float64("rate", 0, "Hourly rate in USD")
	sessionsEditCmd.Flags().String("ended-at", "", "End time (RFC 3339)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsEditCmd, sessionsRemoveCmd)
}
