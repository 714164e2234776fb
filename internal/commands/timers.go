package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/timers"
	"github.com/balkashynov/mentalbank/internal/tui"
)

var timersCmd = &cobra.Command{
	Use:   "timers [task-id...]",
	Short: "Run several timers at once on the timer board",
	Long: `Open the timer board, starting a timer for each task given.

Timers are kept in the state directory, so closing the board leaves them
running; they catch up on the elapsed time when the board opens again.
Each started timer opens a session on the server and stopping it ends that session.

Examples:
  mbb timers                 # reopen the board
  mbb timers 3f2c... 9a1b... # start two timers
  mbb timers --no-ui         # print the timers and exit`,
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		orch := timers.New(s.client, s.client, timers.NewFileStorage(s.settings.StateDir), timers.Options{
			StaleAfter: s.settings.StaleAfter(),
		})
		defer orch.Close()

		if err := orch.Restore(); err != nil {
			return err
		}

		var rate *float64
		if cmd.Flags().Changed("rate") {
			r, _ := cmd.Flags().GetFloat64("rate")
			rate = &r
		}

		for _, taskID := range args {
			task, err := s.client.GetTask(ctx, taskID)
			if err != nil {
				return err
			}
			entry, err := orch.Start(ctx, timers.TaskRef{
				ID:            task.ID,
				Title:         task.Title,
				CategoryID:    task.CategoryID,
				HourlyRateUSD: rate,
			})
			if err != nil && entry.TaskID == "" {
				return err
			}
			if err != nil {
				fmt.Printf("⚠️  %s is running locally but not synced: %v\n", task.Title, err)
			}
		}

		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			printTimers(orch.Entries())
			return nil
		}
		return tui.RunTimerBoard(ctx, orch, filepath.Join(s.settings.StateDir, "timers.log"))
	}),
}

func printTimers(entries []timers.Entry) {
	if len(entries) == 0 {
		fmt.Println("No timers.")
		return
	}
	for _, e := range entries {
		marker := ""
		if e.Unsynced {
			marker = "  (not synced)"
		}
		fmt.Printf("%-8s %9s %9s  %s%s\n", e.Status(), tui.FormatClock(e.CurrentTime), tui.FormatUSD(e.SessionEarnings), e.TaskTitle, marker)
	}
}

func init() {
	timersCmd.Flags().Float64("rate", 0, "Hourly rate in USD for timers started now")
	timersCmd.Flags().Bool("no-ui", false, "Print timers without the interactive board")
}
