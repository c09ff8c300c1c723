package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hallgrim/keel/internal/manifest"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateResult holds the validation outcome for a manifest.
type ValidateResult struct {
	Manifest string                     `json:"manifest"`
	Valid    bool                       `json:"valid"`
	Errors   []manifest.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <manifest.cue>",
		Short: "Validate an account manifest",
		Long: `Compile a CUE account manifest and check it against authoring rules
without applying it.

Exit codes:
  0 - Manifest is valid
  1 - Manifest is invalid
  2 - Command error (file not found, CUE compile error, etc.)

Examples:
  keel validate ./account.cue
  keel validate ./account.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, manifestPath string, cmd *cobra.Command) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	if errs := manifest.Validate(m); len(errs) > 0 {
		return reportValidationFailure(cmd, opts.Format, manifestPath, errs)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(ValidateResult{
			Manifest: manifestPath,
			Valid:    true,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Manifest %s is valid (account %s, %d owners, %d orders)\n",
		manifestPath, m.Account, 1+len(m.ExtraOwners), len(m.Orders))
	return nil
}

// reportValidationFailure prints validation errors and returns the
// domain-failure exit code. Shared by validate and apply.
func reportValidationFailure(cmd *cobra.Command, format, manifestPath string, errs []manifest.ValidationError) error {
	if format == "json" {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(ValidateResult{
			Manifest: manifestPath,
			Valid:    false,
			Errors:   errs,
		}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Manifest %s is invalid:\n", manifestPath)
		for _, e := range errs {
			fmt.Fprintf(w, "  %v\n", e)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("manifest has %d validation errors", len(errs)))
}
