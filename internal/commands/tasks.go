package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/client"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/parser"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks", "t"},
	Short:   "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <task description>",
	Short: "Add a new task",
	Long: `Add a new task with optional metadata.

Smart parsing syntax:
  @category   - Category name (must exist, see 'mbb category add')
  +priority   - Priority (low/medium/high or 1/2/3)
  due:3 days  - Due date (dd/mm/yyyy, X days, X hours, X weeks)

Example:
  mbb task add "Invoice design work @design +high due:2 days"`,
	Args: cobra.MinimumNArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		parsed := parser.ParseTitle(strings.Join(args, " "))
		if len(parsed.Errors) > 0 {
			return fmt.Errorf("could not parse task: %s", strings.Join(parsed.Errors, ", "))
		}

		// Flags take precedence over parsed values
		category := parsed.Category
		if flagCategory, _ := cmd.Flags().GetString("category"); flagCategory != "" {
			category = flagCategory
		}
		priority := parsed.Priority
		if flagPriority, _ := cmd.Flags().GetString("priority"); flagPriority != "" {
			priority = flagPriority
		}
		dueDate := parsed.DueDate
		if flagDue, _ := cmd.Flags().GetString("due"); flagDue != "" {
			due, err := parser.ParseDueDate(flagDue)
			if err != nil {
				return fmt.Errorf("parsing due date: %w", err)
			}
			dueDate = due
		}
		note, _ := cmd.Flags().GetString("note")

		req := api.CreateTaskRequest{
			Title:    parsed.Title,
			Priority: priority,
			Note:     note,
			Due:      dueDate,
		}
		if category != "" {
			found, err := findCategory(ctx, s.client, category)
			if err != nil {
				return err
			}
			req.CategoryID = &found.ID
		}

		task, err := s.client.CreateTask(ctx, req)
		if err != nil {
			return err
		}

		fmt.Printf("Created task %s: %s\n", task.ID, task.Title)
		if category != "" {
			fmt.Printf("  Category: %s\n", category)
		}
		if label := parser.PriorityLabel(task.Priority); label != "" {
			fmt.Printf("  Priority: %s\n", label)
		}
		if task.Due != nil {
			fmt.Printf("  Due: %s\n", parser.FormatDueDate(task.Due))
		}
		return nil
	}),
}

var taskListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		status, _ := cmd.Flags().GetString("status")
		tasks, err := s.client.ListTasks(ctx, status)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found. Use 'mbb task add \"task description\"' to create your first task.")
			return nil
		}

		fmt.Printf("%-36s %-11s %-40s %-15s %-8s %s\n", "ID", "STATUS", "TITLE", "CATEGORY", "PRIORITY", "DUE")
		fmt.Println(strings.Repeat("-", 124))
		for _, task := range tasks {
			fmt.Println(formatTaskRow(task))
		}
		return nil
	}),
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as completed, stopping its timer",
	Args:  cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		task, err := s.client.SetTaskStatus(ctx, args[0], models.StatusDone)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Marked task %s as done: %s\n", task.ID, task.Title)
		if task.DoneAt != nil {
			fmt.Printf("Completed at: %s\n", task.DoneAt.Local().Format("15:04:05"))
		}
		return nil
	}),
}

var taskUndoneCmd = &cobra.Command{
	Use:   "undone <task-id>",
	Short: "Mark a completed task back to todo status",
	Args:  cobra.ExactArgs(1),
	Run: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		task, err := s.client.SetTaskStatus(ctx, args[0], models.StatusTodo)
		if err != nil {
			return err
		}
		fmt.Printf("↩️  Marked task %s back to todo: %s\n", task.ID, task.Title)
		return nil
	}),
}

// findCategory resolves a category by name, ignoring case.
func findCategory(ctx context.Context, c *client.Client, name string) (*models.Category, error) {
	categories, err := c.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if strings.EqualFold(categories[i].Name, name) {
			return &categories[i], nil
		}
	}
	return nil, errors.New("category '" + name + "' not found, create it with 'mbb category add " + name + "'")
}

func formatTaskRow(task models.Task) string {
	title := task.Title
	if len(title) > 38 {
		title = title[:35] + "..."
	}

	category := ""
	if task.Category != nil {
		category = task.Category.Name
	}
	if len(category) > 13 {
		category = category[:10] + "..."
	}

	due := ""
	if task.Due != nil {
		due = task.Due.Local().Format(time.DateOnly)
	}

	return fmt.Sprintf("%-36s %-11s %-40s %-15s %-8s %s",
		task.ID,
		task.Status,
		title,
		category,
		parser.PriorityLabel(task.Priority),
		due)
}

func init() {
	taskAddCmd.Flags().StringP("category", "c", "", "Category name")
	taskAddCmd.Flags().String("priority", "", "Priority: low, medium, high, or 1-3")
	taskAddCmd.Flags().String("due", "", "Due date: dd/mm/yyyy, X days, X hours, X weeks")
	taskAddCmd.Flags().String("note", "", "Additional notes")

	taskListCmd.Flags().StringP("status", "s", "", "Filter by status: todo, in_progress, done")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskUndoneCmd)
}
