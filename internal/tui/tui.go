package tui

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/mentalbank/internal/timers"
)

// RunTimerBoard runs the timer board until the user quits. Timers keep
// their persisted state; running ones catch up the next time the board opens.
// While the board is up, log output goes to logPath when set.
func RunTimerBoard(ctx context.Context, orch *timers.Orchestrator, logPath string) error {
	if logPath != "" {
		f, err := tea.LogToFile(logPath, "")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	p := tea.NewProgram(NewBoardModel(ctx, orch), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}

	running := 0
	for _, e := range orch.Entries() {
		if e.Ticking() {
			running++
			fmt.Printf("⏱️  %s still running: %s, %s\n", e.TaskTitle, FormatClock(e.CurrentTime), FormatUSD(e.SessionEarnings))
		}
		if e.Unsynced {
			fmt.Printf("⚠️  %s is not synced with the server\n", e.TaskTitle)
		}
	}
	if running > 0 {
		fmt.Println("   Use 'mbb timers' to pick them up again.")
	}
	return nil
}
