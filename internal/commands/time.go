package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/client"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start tracking time on a task",
	Long: `Start a session for a task. The rate defaults to the task's category rate.

Examples:
  mbb start 3f2c...            # use the category rate
  mbb start 3f2c... --rate 90  # bill this session at $90/h`,
	Args: cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		req := api.StartRequest{TaskID: args[0]}
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			req.HourlyRateUSD = &rate
		}
		req.Notes, _ = cmd.Flags().GetString("note")

		started, err := s.client.CreateSession(ctx, req)
		if err != nil {
			return err
		}

		fmt.Printf("⏱️  Started session %s%s\n", started.ID, taskSuffix(started))
		fmt.Printf("Started at: %s\n", started.StartedAt.Local().Format("15:04:05"))
		if started.HourlyRateUSD != nil {
			fmt.Printf("Rate: %s/h\n", tui.FormatUSD(started.HourlyRateUSD))
		}
		return nil
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		note, _ := cmd.Flags().GetString("note")
		ended, err := s.client.EndSession(ctx, args[0], note)
		if err != nil {
			return err
		}
		printEnded("⏹️  Stopped", ended)
		return nil
	}),
}

var pauseCmd = &cobra.Command{
	Use:   "pause <session-id>",
	Short: "Pause a session (ends it; resume opens a new one)",
	Args:  cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		paused, err := s.client.PauseSession(ctx, args[0])
		if err != nil {
			return err
		}
		printEnded("⏸️  Paused", paused)
		return nil
	}),
}

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a paused session in a new session",
	Args:  cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		resumed, err := s.client.ResumeSession(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("▶️  Resumed as session %s%s\n", resumed.ID, taskSuffix(resumed))
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show active sessions with live earnings",
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		result, err := s.client.ListSessions(ctx, client.SessionQuery{ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(result.Sessions) == 0 {
			fmt.Println("No active time tracking session")
			return nil
		}

		for _, active := range result.Sessions {
			view, err := s.client.GetSession(ctx, active.ID)
			if err != nil {
				return err
			}

			elapsed := time.Duration(0)
			if view.CurrentDurationSeconds != nil {
				elapsed = time.Duration(*view.CurrentDurationSeconds) * time.Second
			}
			fmt.Printf("⏱️  Currently tracking%s\n", taskSuffix(view.Session))
			fmt.Printf("   Session:  %s\n", view.ID)
			fmt.Printf("   Started:  %s\n", view.StartedAt.Local().Format("15:04:05"))
			fmt.Printf("   Elapsed:  %s\n", tui.FormatDuration(elapsed))
			fmt.Printf("   Earnings: %s\n", tui.FormatUSD(view.CurrentEarningsUSD))
		}
		return nil
	}),
}

func printEnded(verb string, ended *models.Session) {
	var duration time.Duration
	if ended.DurationSeconds != nil {
		duration = time.Duration(*ended.DurationSeconds) * time.Second
	}
	fmt.Printf("%s session %s%s\n", verb, ended.ID, taskSuffix(ended))
	fmt.Printf("Session duration: %s\n", tui.FormatDuration(duration))
	fmt.Printf("Earnings: %s\n", tui.FormatUSD(ended.EarningsUSD))
}

func taskSuffix(s *models.Session) string {
	if s.Task != nil && s.Task.Title != "" {
		return ": " + s.Task.Title
	}
	return " for task " + s.TaskID
}

func init() {
	startCmd.Flags().Float64("rate", 0, "Hourly rate in USD for this session")
	startCmd.Flags().String("note", "", "Session notes")
	stopCmd.Flags().String("note", "", "Notes to record on the session")
}
