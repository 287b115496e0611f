package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lonkyzooner/thunderfire-sub002/internal/action"
	"github.com/lonkyzooner/thunderfire-sub002/internal/intent"
	"github.com/lonkyzooner/thunderfire-sub002/internal/reference"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
	"github.com/lonkyzooner/thunderfire-sub002/internal/workflow"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Print the heuristic classification and resolved action for a phrase",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		in := intent.Heuristic(text)
		return printJSON(map[string]any{
			"intent": in,
			"action": action.Resolve(in),
		})
	},
}

var (
	workflowTenant string
	workflowUser   string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect or clear durable workflow state",
}

var workflowShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show workflow state and suggested next actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withWorkflow(cmd.Context(), func(ctx context.Context, m *workflow.Manager, key types.SessionKey) error {
			out := map[string]any{}
			state, err := m.GetCurrent(ctx, key)
			switch {
			case errors.Is(err, workflow.ErrNotFound):
				out["state"] = nil
			case err != nil:
				return err
			default:
				out["state"] = state
			}
			suggestions, err := m.SuggestNextActions(ctx, key)
			if err != nil {
				return err
			}
			out["suggestions"] = suggestions
			return printJSON(out)
		})
	},
}

var workflowResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete workflow state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withWorkflow(cmd.Context(), func(ctx context.Context, m *workflow.Manager, key types.SessionKey) error {
			if err := m.Reset(ctx, key); err != nil {
				return err
			}
			fmt.Printf("workflow state reset for %s\n", key)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{workflowShowCmd, workflowResetCmd} {
		c.Flags().StringVar(&workflowTenant, "tenant", "", "tenant id")
		c.Flags().StringVar(&workflowUser, "user", "", "user id")
		_ = c.MarkFlagRequired("tenant")
		_ = c.MarkFlagRequired("user")
	}
	workflowCmd.AddCommand(workflowShowCmd, workflowResetCmd)
}

func withWorkflow(ctx context.Context, fn func(context.Context, *workflow.Manager, types.SessionKey) error) error {
	key := types.NewSessionKey(workflowTenant, workflowUser)
	if err := key.Validate(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gormDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	manager, err := openWorkflow(gormDB)
	if err != nil {
		return err
	}
	defer manager.Close()
	return fn(ctx, manager, key)
}

var statutesCmd = &cobra.Command{
	Use:   "statutes [query]",
	Short: "List the loaded reference dataset, or look up a query",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dataset, err := reference.Load(cfg.ReferenceFile)
		if err != nil {
			return fmt.Errorf("load reference dataset: %w", err)
		}
		if len(args) > 0 {
			rec, ok := dataset.Lookup(strings.Join(args, " "))
			if !ok {
				return errors.New("no matching statute")
			}
			return printJSON(rec)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tTITLE")
		for _, rec := range dataset.Records() {
			fmt.Fprintf(w, "%s\t%s\n", rec.Code, rec.Title)
		}
		return w.Flush()
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
