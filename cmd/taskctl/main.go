package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/bootstrap"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appFactory lets tests swap in a pre-seeded application
var appFactory = func(ctx context.Context, cfg *config.Config) (*bootstrap.App, error) {
	return bootstrap.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	var store string

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Inspect and operate on tasks from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&store, "store", "", "Store driver (firestore, postgres, memory); defaults to STORE_DRIVER")

	openApp := func(cmd *cobra.Command) (*bootstrap.App, error) {
		cfg := config.Load()
		if store != "" {
			cfg.StoreDriver = store
		}
		return appFactory(cmd.Context(), cfg)
	}

	rootCmd.AddCommand(listCmd(openApp))
	rootCmd.AddCommand(showCmd(openApp))
	rootCmd.AddCommand(completeCmd(openApp))
	rootCmd.AddCommand(sweepCmd(openApp))
	rootCmd.AddCommand(tokenCmd(openApp))

	return rootCmd
}

type appOpener func(cmd *cobra.Command) (*bootstrap.App, error)

func listCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks a user can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tasks, err := app.Tasks.ListVisibleTasks(cmd.Context(), userID)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id to list tasks for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func showCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [task-id]",
		Short: "Show one task as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			task, err := app.Tasks.GetTaskDetail(cmd.Context(), args[0], userID)
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("task %s not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), task)
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id to view the task as")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func completeCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete [task-id]",
		Short: "Complete a task, creating the next occurrence for recurring tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Tasks.CompleteTask(cmd.Context(), args[0], userID)
			if err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if result.Successor != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "next instance: %s\n", result.Successor.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id completing the task")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func sweepCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one overdue sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Scheduler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flagged %d overdue tasks\n", n)
			return nil
		},
	}
}

func tokenCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an API access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			email, _ := cmd.Flags().GetString("email")
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var token string
			if email != "" {
				token, err = app.Auth.IssueTokenForEmail(cmd.Context(), email)
			} else {
				token, err = app.Auth.IssueToken(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id to issue the token for")
	cmd.Flags().StringP("email", "e", "", "Email of the user to issue the token for")
	cmd.MarkFlagsOneRequired("user", "email")
	cmd.MarkFlagsMutuallyExclusive("user", "email")
	return cmd
}

func printTasks(w io.Writer, tasks []*domain.EnrichedTask) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tDEADLINE\tPROJECT\tOVERDUE")
	for _, t := range tasks {
		deadline := "-"
		if t.Deadline != nil {
			deadline = *t.Deadline
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n", t.ID, t.Title, t.Status, deadline, t.ProjectTitle, t.IsOverdue)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
