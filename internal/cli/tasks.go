package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"jarvis/internal/proactive"
	"jarvis/internal/storage"
	"jarvis/pkg"

	"github.com/spf13/cobra"
)

func init() {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task list",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE:  runTasksList,
	}

	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a pending task",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTasksAdd,
	}
	addCmd.Flags().StringP("description", "D", "", "Task description")
	addCmd.Flags().String("due", "", "Due date (YYYY-MM-DD or YYYY-MM-DD HH:MM)")

	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksStatus(pkg.TaskCompleted),
	}

	reopenCmd := &cobra.Command{
		Use:   "reopen <id>",
		Short: "Mark a task pending again",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksStatus(pkg.TaskPending),
	}

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksRemove,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Run the proactivity check against the current tasks",
		RunE:  runTasksCheck,
	}

	tasksCmd.AddCommand(listCmd, addCmd, doneCmd, reopenCmd, rmCmd, checkCmd)
	RootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	tasks, err := a.backend.ListTasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	printTasks(cmd.OutOrStdout(), tasks)
	return nil
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	dueStr, _ := cmd.Flags().GetString("due")

	due, err := storage.ParseDueDate(dueStr)
	if err != nil {
		return fmt.Errorf("due: %w", err)
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	task, err := a.backend.AddTask(cmd.Context(), strings.Join(args, " "), description, due)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), task.ID)
	return nil
}

func runTasksStatus(status pkg.TaskStatus) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id: %w", err)
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer a.Close()

		if err := a.backend.SetTaskStatus(cmd.Context(), id, status); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		return nil
	}
}

func runTasksRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	if err := a.backend.DeleteTask(cmd.Context(), id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func runTasksCheck(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	tasks, err := a.backend.ListTasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	advice, ok := proactive.Check(tasks, time.Now())
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Sem alertas.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), advice)
	return nil
}

func printTasks(out io.Writer, tasks []pkg.Task) {
	for _, t := range tasks {
		mark := " "
		if t.Status == pkg.TaskCompleted {
			mark = "x"
		}
		due := ""
		if t.DueDate != nil {
			due = " (até " + t.DueDate.Format("2006-01-02 15:04") + ")"
		}
		fmt.Fprintf(out, "%4d [%s] %s%s\n", t.ID, mark, t.Title, due)
		if t.Description != "" {
			fmt.Fprintf(out, "         %s\n", t.Description)
		}
	}
}
