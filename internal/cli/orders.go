package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/runtime"
)

// OrdersOptions holds flags for the orders command.
type OrdersOptions struct {
	*RootOptions
	Database string
	Account  string
	Now      int64
}

// OrderView is the serializable view of one order.
type OrderView struct {
	ID                  int64  `json:"id"`
	Interval            int64  `json:"interval"`
	MaxExecutions       int64  `json:"max_executions"`
	ExecutionsCompleted int64  `json:"executions_completed"`
	StartTime           int64  `json:"start_time"`
	LastExecutionTime   int64  `json:"last_execution_time"`
	Payload             string `json:"payload"` // hex
	State               string `json:"state"`
}

// OrdersResult holds the orders listing for one account.
type OrdersResult struct {
	Account string      `json:"account"`
	Orders  []OrderView `json:"orders"`
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List an account's orders",
		Long: `Rebuild module state from the journal and list the orders of one
account. The --now flag sets the reference time for the state column.

Exit codes:
  0 - Listed
  2 - Command error (database not found, etc.)

Examples:
  keel orders --db ./keel.db --account acct-1
  keel orders --db ./keel.db --account acct-1 --now 1700000000
  keel orders --db ./keel.db --account acct-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrders(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Account, "account", "", "account to list (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().Int64Var(&opts.Now, "now", 0, "reference time for state classification")

	return cmd
}

func runOrders(opts *OrdersOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	_, state, err := runtime.Replay(ctx, st, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	orders := state.Scheduler.Orders(core.Account(opts.Account))
	result := OrdersResult{
		Account: opts.Account,
		Orders:  make([]OrderView, 0, len(orders)),
	}
	for _, o := range orders {
		result.Orders = append(result.Orders, OrderView{
			ID:                  o.ID,
			Interval:            o.Interval,
			MaxExecutions:       o.MaxExecutions,
			ExecutionsCompleted: o.ExecutionsCompleted,
			StartTime:           o.StartTime,
			LastExecutionTime:   o.LastExecutionTime,
			Payload:             hex.EncodeToString(o.Payload),
			State:               o.State(opts.Now),
		})
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	}

	w := cmd.OutOrStdout()
	if len(result.Orders) == 0 {
		fmt.Fprintf(w, "No orders for account %s.\n", opts.Account)
		return nil
	}
	fmt.Fprintf(w, "Orders for account %s (now=%d):\n", opts.Account, opts.Now)
	for _, o := range result.Orders {
		fmt.Fprintf(w, "  #%d  interval=%d  executions=%d/%d  start=%d  last=%d  state=%s\n",
			o.ID, o.Interval, o.ExecutionsCompleted, o.MaxExecutions, o.StartTime, o.LastExecutionTime, o.State)
	}
	return nil
}
