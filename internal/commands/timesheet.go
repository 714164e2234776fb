package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/client"
	"github.com/balkashynov/mentalbank/internal/earnings"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/parser"
)

var timesheetCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Show this week's hours and earnings per task",
	Long: `Show a weekly timesheet of tracked time grouped by task and day.

Active sessions count up to now. Use --weeks-ago to look back.

Example output:
  Task                     Mon   Tue   Wed   Thu   Fri   Hours   Earned
  Invoice design work      2.0   3.5     -     -     -     5.5  $495.00
  Client call                -   1.0     -     -     -     1.0   $60.00
  Total                    2.0   4.5   0.0   0.0   0.0     6.5  $555.00`,
	Args: cobra.NoArgs,
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		weeksAgo, _ := cmd.Flags().GetInt("weeks-ago")
		now := time.Now()
		weekStart := parser.WeekStart(now).AddDate(0, 0, -7*weeksAgo)
		weekEnd := weekStart.AddDate(0, 0, 7).Add(-time.Second)

		rows, err := fetchAllSessions(ctx, s.client, client.SessionQuery{StartDate: &weekStart, EndDate: &weekEnd})
		if err != nil {
			return fmt.Errorf("failed to get sessions: %w", err)
		}
		if len(rows) == 0 {
			fmt.Println("No time tracked this week.")
			return nil
		}

		displayTimesheet(buildTimesheet(rows, now), weekStart)
		return nil
	}),
}

// fetchAllSessions pages through every session matching q.
func fetchAllSessions(ctx context.Context, c *client.Client, q client.SessionQuery) ([]models.Session, error) {
	var all []models.Session
	for {
		page, err := c.ListSessions(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Sessions...)
		if !page.Pagination.HasMore || len(page.Sessions) == 0 {
			return all, nil
		}
		q.Offset = page.Pagination.Offset + len(page.Sessions)
	}
}

type timesheetRow struct {
	title   string
	seconds [7]int64 // Monday first
	earned  float64
}

func (r timesheetRow) totalSeconds() int64 {
	var total int64
	for _, s := range r.seconds {
		total += s
	}
	return total
}

// buildTimesheet groups sessions by task and weekday. Active sessions count
// up to now at their rate.
func buildTimesheet(rows []models.Session, now time.Time) []timesheetRow {
	byTask := make(map[string]*timesheetRow)
	var order []string

	for _, s := range rows {
		row, ok := byTask[s.TaskID]
		if !ok {
			title := s.TaskID
			if s.Task != nil && s.Task.Title != "" {
				title = s.Task.Title
			}
			row = &timesheetRow{title: title}
			byTask[s.TaskID] = row
			order = append(order, s.TaskID)
		}

		var seconds int64
		var earned *float64
		if s.IsActive {
			seconds = int64(now.Sub(s.StartedAt) / time.Second)
			if seconds < 0 {
				seconds = 0
			}
			earned = earnings.Calculate(seconds, s.HourlyRateUSD)
		} else {
			if s.DurationSeconds != nil {
				seconds = *s.DurationSeconds
			}
			earned = s.EarningsUSD
		}

		day := (int(s.StartedAt.In(now.Location()).Weekday()) + 6) % 7
		row.seconds[day] += seconds
		if earned != nil {
			row.earned += *earned
		}
	}

	out := make([]timesheetRow, 0, len(order))
	for _, id := range order {
		row := *byTask[id]
		row.earned = earnings.Round2(row.earned)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].totalSeconds() > out[j].totalSeconds()
	})
	return out
}

// displayTimesheet outputs the formatted timesheet table
func displayTimesheet(rows []timesheetRow, weekStart time.Time) {
	dayNames := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	// Weekdays always show; weekend days only when worked
	var days []int
	for i := range dayNames {
		if i < 5 {
			days = append(days, i)
			continue
		}
		for _, row := range rows {
			if row.seconds[i] > 0 {
				days = append(days, i)
				break
			}
		}
	}

	nameWidth := 20
	for _, row := range rows {
		if len(row.title) > nameWidth {
			nameWidth = len(row.title)
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}

	hours := func(seconds int64) string {
		if seconds == 0 {
			return "-"
		}
		return fmt.Sprintf("%.1f", float64(seconds)/3600)
	}
	separator := func() {
		fmt.Print(strings.Repeat("-", nameWidth))
		for range days {
			fmt.Print("  " + strings.Repeat("-", 4))
		}
		fmt.Println("  " + strings.Repeat("-", 6) + "  " + strings.Repeat("-", 10))
	}

	fmt.Printf("%-*s", nameWidth, "Task")
	for _, d := range days {
		fmt.Printf("  %4s", dayNames[d])
	}
	fmt.Printf("  %6s  %10s\n", "Hours", "Earned")
	separator()

	var dayTotals [7]int64
	var totalSeconds int64
	var totalEarned float64
	for _, row := range rows {
		title := row.title
		if len(title) > nameWidth {
			title = title[:nameWidth-3] + "..."
		}
		fmt.Printf("%-*s", nameWidth, title)
		for _, d := range days {
			fmt.Printf("  %4s", hours(row.seconds[d]))
			dayTotals[d] += row.seconds[d]
		}
		fmt.Printf("  %6s  %10s\n", hours(row.totalSeconds()), fmt.Sprintf("$%.2f", row.earned))
		totalSeconds += row.totalSeconds()
		totalEarned += row.earned
	}

	separator()
	fmt.Printf("%-*s", nameWidth, "Total")
	for _, d := range days {
		fmt.Printf("  %4.1f", float64(dayTotals[d])/3600)
	}
	fmt.Printf("  %6.1f  %10s\n", float64(totalSeconds)/3600, fmt.Sprintf("$%.2f", totalEarned))

	fmt.Printf("\nWeek of %s to %s\n",
		weekStart.Format("Jan 2"),
		weekStart.AddDate(0, 0, 6).Format("Jan 2, 2006"))
}

func init() {
	timesheetCmd.Flags().Int("weeks-ago", 0, "Show an earlier week (1 = last week)")
}
