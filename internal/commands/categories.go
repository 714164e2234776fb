package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/tui"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories", "c"},
	Short:   "Manage categories and their hourly rates",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a category",
	Long: `Add a category. Sessions on its tasks use its rate unless started with --rate.

Example:
  mbb category add Design --rate 90 --color "#7C3AED"`,
	Args: cobra.MinimumNArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		req := api.CreateCategoryRequest{Name: strings.Join(args, " ")}
		req.Color, _ = cmd.Flags().GetString("color")
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			req.HourlyRateUSD = &rate
		}

		category, err := s.client.CreateCategory(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Created category %s: %s\n", category.ID, category.Name)
		if category.HourlyRateUSD != nil {
			fmt.Printf("  Rate: %s/h\n", tui.FormatUSD(category.HourlyRateUSD))
		}
		return nil
	}),
}

var categoryListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List categories",
	Args:    cobra.NoArgs,
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		categories, err := s.client.ListCategories(ctx)
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			fmt.Println("No categories yet. Use 'mbb category add <name> --rate <usd>' to create one.")
			return nil
		}

		fmt.Printf("%-36s %-24s %-8s %s\n", "ID", "NAME", "COLOR", "RATE")
		fmt.Println(strings.Repeat("-", 80))
		for _, category := range categories {
			rate := "-"
			if category.HourlyRateUSD != nil {
				rate = tui.FormatUSD(category.HourlyRateUSD) + "/h"
			}
			fmt.Printf("%-36s %-24s %-8s %s\n", category.ID, category.Name, category.Color, rate)
		}
		return nil
	}),
}

func init() {
	categoryAddCmd.Flags().Float64("rate", 0, "Hourly rate in USD")
	categoryAddCmd.Flags().String("color", "", "Hex colour, e.g. #7C3AED")

	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd)
}
