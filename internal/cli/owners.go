package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/runtime"
)

// OwnersOptions holds flags for the owners command.
type OwnersOptions struct {
	*RootOptions
	Database string
	Account  string
}

// OwnerView is one occupied owner slot.
type OwnerView struct {
	Slot       uint32 `json:"slot"`
	Credential string `json:"credential"` // hex
}

// OwnersResult holds the owner registry view for one account.
type OwnersResult struct {
	Account     string      `json:"account"`
	Initialized bool        `json:"initialized"`
	OwnerCount  uint32      `json:"owner_count"`
	Owners      []OwnerView `json:"owners"`
}

// NewOwnersCommand creates the owners command.
func NewOwnersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OwnersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "owners",
		Short: "Show an account's owner registry",
		Long: `Rebuild module state from the journal and show the owner registry of
one account: initialization status, owner count, and occupied slots.

Exit codes:
  0 - Listed
  2 - Command error (database not found, etc.)

Examples:
  keel owners --db ./keel.db --account acct-1
  keel owners --db ./keel.db --account acct-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOwners(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Account, "account", "", "account to show (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runOwners(opts *OwnersOptions, cmd *cobra.Command) error {
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

	account := core.Account(opts.Account)
	result := OwnersResult{
		Account:     opts.Account,
		Initialized: state.Owners.IsInitialized(account),
		OwnerCount:  state.Owners.OwnerCount(account),
		Owners:      []OwnerView{},
	}
	for _, slot := range state.Owners.Slots(account) {
		result.Owners = append(result.Owners, OwnerView{
			Slot:       slot,
			Credential: state.Owners.Owner(account, slot).Hex(),
		})
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	}

	w := cmd.OutOrStdout()
	if !result.Initialized {
		fmt.Fprintf(w, "Account %s has no owner registry installed.\n", opts.Account)
		return nil
	}
	fmt.Fprintf(w, "Owner registry for account %s (count=%d):\n", opts.Account, result.OwnerCount)
	for _, o := range result.Owners {
		fmt.Fprintf(w, "  slot %d: %s\n", o.Slot, o.Credential)
	}
	return nil
}
