package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/client"
	"github.com/balkashynov/mentalbank/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var settingsFile string

var rootCmd = &cobra.Command{
	Use:   "mbb",
	Short: "Mental Bank Balance: track time, see what it earns",
	Long: `mbb tracks work sessions against tasks and turns the time into earnings.
Run 'mbb serve' for the sessions API, then start, pause and stop timers from the terminal.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mbb %s (commit %s, built %s)\n", version, commit, date)
	},
}

// session bundles what client commands need.
type session struct {
	client   *client.Client
	settings config.Settings
}

// loadSession reads the client settings, creating an owner id on first use.
func loadSession() (*session, error) {
	path := settingsFile
	if path == "" {
		p, err := config.SettingsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	settings, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureOwner(path, &settings); err != nil {
		return nil, err
	}
	return &session{client: client.New(settings.APIURL, settings.OwnerID), settings: settings}, nil
}

// withClient wraps a command function to load settings and build the API
// client first. Errors are printed, not returned, as in every user command.
func withClient(fn func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := loadSession()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if err := fn(cmd.Context(), cmd, args, s); err != nil {
			printError(err)
		}
	}
}

func printError(err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Error: %s\n", apiErr.Message)
	switch apiErr.Code {
	case apperrors.CodeActiveSessionExists:
		if apiErr.ActiveSessionID != "" {
			fmt.Printf("Active session: %s (use 'mbb stop %s' first)\n", apiErr.ActiveSessionID, apiErr.ActiveSessionID)
		}
	case apperrors.CodeUnauthenticated:
		fmt.Println("Check owner_id in your settings file.")
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "config", "", "Settings file (default: user config dir/mentalbank/settings.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(timersCmd)
	rootCmd.AddCommand(timesheetCmd)
	rootCmd.SetHelpCommand(helpCmd)
	rootCmd.AddCommand(versionCmd)
}
