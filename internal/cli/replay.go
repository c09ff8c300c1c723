package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hallgrim/keel/internal/runtime"
	"github.com/hallgrim/keel/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayDivergence is one divergent operation in JSON output.
type ReplayDivergence struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	Journaled   string `json:"journaled"`
	Replayed    string `json:"replayed"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Operations  int                `json:"operations"`
	Pending     int                `json:"pending"`
	Converged   bool               `json:"converged"`
	Divergences []ReplayDivergence `json:"divergences,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify convergence",
		Long: `Re-dispatch every journaled operation against fresh module state and
compare each replayed outcome byte-for-byte with the journaled one.

A healthy journal converges. Divergence means the journal was produced
by different code or was modified out of band.

Exit codes:
  0 - Journal converged
  1 - Divergences detected
  2 - Command error (database not found, etc.)

Examples:
  keel replay --db ./keel.db
  keel replay --db ./keel.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayCmd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// openJournal opens an existing journal for inspection. Unlike apply,
// the read-only commands never create a database.
func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runReplayCmd(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	report, _, err := runtime.Replay(ctx, st, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		Operations: report.Operations,
		Pending:    report.Pending,
		Converged:  report.Converged(),
	}
	for _, d := range report.Divergences {
		result.Divergences = append(result.Divergences, ReplayDivergence{
			OperationID: d.OperationID,
			Kind:        d.Kind,
			Journaled:   d.Journaled,
			Replayed:    d.Replayed,
		})
	}

	if opts.Format == "json" {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Replayed %d operations (%d pending)\n", result.Operations, result.Pending)
		if result.Converged {
			fmt.Fprintln(w, "Journal converged.")
		} else {
			fmt.Fprintf(w, "Journal DIVERGED: %d operations\n", len(result.Divergences))
			for _, d := range result.Divergences {
				fmt.Fprintf(w, "  %s (%s)\n", d.OperationID, d.Kind)
				fmt.Fprintf(w, "    journaled: %s\n", d.Journaled)
				fmt.Fprintf(w, "    replayed:  %s\n", d.Replayed)
			}
		}
	}

	if !result.Converged {
		return NewExitError(ExitFailure, fmt.Sprintf("%d divergent operations", len(result.Divergences)))
	}
	return nil
}
