package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store the Atlas bearer token used by atlasctl, the daemon and the MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, creds, err := a.credentials()
			if err != nil {
				return err
			}
			token := strings.TrimSpace(args[0])
			if token == "" {
				return errors.New("token cannot be empty")
			}
			if err := creds.Set(credential.TokenKey, token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Token saved to %s\n", creds.Path())
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, creds, err := a.credentials()
			if err != nil {
				return err
			}
			if err := creds.Remove(credential.TokenKey); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) projectsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			if asJSON {
				return a.printJSON(projects)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (a *app) boardCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "board [project-id]",
		Short: "Show a project's board by column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			projectID := domain.ID(args[0])
			tasks, err := client.ListTasks(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			b := board.Project(board.Snapshot{
				ProjectID: projectID,
				Tasks:     tasks,
				Loaded:    true,
				FetchedAt: time.Now(),
			})
			if asJSON {
				return a.printJSON(b)
			}
			a.printBoard(b)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (a *app) tasksCmd() *cobra.Command {
	var (
		query  string
		status string
		sortBy string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "tasks [project-id]",
		Short: "List a project's tasks",
		Long: `List a project's tasks with optional filtering and sorting.

Examples:
  atlasctl tasks 7f3c --status in_progress
  atlasctl tasks 7f3c --query login --sort dueDate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := board.ParseQuery(query, status, sortBy)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			tasks, err := client.ListTasks(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			filtered := board.Filter(tasks, q)
			if asJSON {
				return a.printJSON(filtered)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tDUE\tTITLE")
			for _, t := range filtered {
				due := "-"
				if t.DueDate != nil {
					due = t.DueDate.Format("2006-01-02")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\n", t.ID, t.Status, t.DisplayProgress(), due, t.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "match title or description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (todo, in_progress, done, all)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by title, dueDate or priority")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (a *app) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [task-id]",
		Short: "Mark a task complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			reporter := board.ReporterFunc(func(kind board.ToastKind, message string) {
				if kind == board.ToastError {
					fmt.Fprintln(a.errOut, message)
					return
				}
				fmt.Fprintln(a.out, message)
			})
			coord := board.NewCoordinator(board.NewStore(), client, nil, reporter, nil)

			result, err := coord.CompleteTask(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			if result.NextTask != nil {
				fmt.Fprintf(a.out, "Next task: %s %s\n", result.NextTask.ID, result.NextTask.Title)
			}
			return nil
		},
	}
}

func (a *app) notificationsCmd() *cobra.Command {
	var (
		unread bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			items, err := client.ListNotifications(cmd.Context(), unread)
			if err != nil {
				return fmt.Errorf("list notifications: %w", err)
			}
			if asJSON {
				return a.printJSON(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "No notifications.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREAD\tTYPE\tTITLE")
			for _, n := range items {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", n.ID, n.Read, n.Type, n.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (a *app) printBoard(b board.Board) {
	fmt.Fprintf(a.out, "Project %s: %d tasks (%d to do, %d in progress, %d done)\n",
		b.ProjectID, b.Counts.Total, b.Counts.ToDo, b.Counts.InProgress, b.Counts.Done)
	for _, col := range b.Columns {
		fmt.Fprintf(a.out, "\n%s (%d)\n", col.Status, len(col.Cards))
		for _, c := range col.Cards {
			marker := ""
			switch c.Badge {
			case board.BadgeProminent:
				marker = " [HIGH RISK]"
			case board.BadgeSubdued:
				marker = " [risk]"
			}
			fmt.Fprintf(a.out, "  %s  %3d%%  %s%s\n", c.Task.ID, c.Progress, c.Task.Title, marker)
		}
	}
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}
