package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for mbb",
	Long:  `Display detailed help for all mbb commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp()
	},
}

func showCustomHelp() {
	fmt.Print(`
███╗   ███╗██████╗ ██████╗
████╗ ████║██╔══██╗██╔══██╗
██╔████╔██║██████╔╝██████╔╝
██║╚██╔╝██║██╔══██╗██╔══██╗
██║ ╚═╝ ██║██████╔╝██████╔╝
╚═╝     ╚═╝╚═════╝ ╚═════╝

mbb - Mental Bank Balance: time tracking that counts the money

SERVER:

  serve                   Run the sessions API
    --env-file            .env file to load first (default .env)

SESSIONS:

  start <task-id>         Start a session
    --rate                Hourly rate in USD (default: category rate)
    --note                Session notes
  stop <session-id>       End a session and record its earnings
    --note                Notes to record
  pause <session-id>      End the session, remembering it was a pause
  resume <session-id>     Continue a paused session in a new session
  status                  Active sessions with live earnings

  sessions ls             Sessions with totals
    --task, --category    Filter by id
    --active              Only active sessions
    --from, --to          Date range (today, yesterday, yyyy-mm-dd, dd/mm/yyyy)
    --limit, --offset     Paging
    --json                JSON output
  sessions show <id>      One session in detail
  sessions edit <id>      Change notes, rate or end time
    --note, --rate, --ended-at
  sessions rm <id>        Delete an ended session

TASKS:

  task add <task>         Create a task with smart parsing
    -c, --category        Category name
    --priority            low|medium|high
    --due                 Due date (dd/mm/yyyy, 3 days, 2 weeks)
    --note                Additional notes

    Smart syntax:
      @category     Set category (rate comes from it)
      +priority     Set priority (low/medium/high)
      due:3 days    Set due date

    Example:
      mbb task add "Invoice design work @design +high due:2 days"

  task ls                 List tasks
    -s, --status          todo|in_progress|done
  task done <id>          Mark done (stops its running session)
  task undone <id>        Back to todo

  category add <name>     Create a category
    --rate                Hourly rate in USD
    --color               Hex colour
  category ls             List categories

TIMERS:

  timers [task-id...]     Timer board, several timers at once
    --rate                Rate for timers started now
    --no-ui               Print the timers and exit

    Keys:
      ↑/↓           Select timer
      p / space     Pause or resume
      s             Stop (ends the session)
      r             Reset elapsed time
      d             Delete timer
      P S R D       Pause, stop, reset or delete all
      ?             More help
      q/esc         Quit (timers keep running)

REPORTS:

  timesheet               This week's hours and earnings per task
    --weeks-ago           Look at an earlier week

  version                 Print version
  help                    Show this help

Settings live in <user config dir>/mentalbank/settings.yaml (override with --config).

`)
}
