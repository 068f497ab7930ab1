package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomaszsb/Game-alpha-sub005/internal/catalog"
)

// ValidationResult is the JSON form of a validate run.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Spaces int      `json:"spaces"`
	Cards  int      `json:"cards"`
	Issues []string `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog for broken movement and dice data",
		Long: `Load the catalog and report spaces whose movement can't work at runtime:
dice movement without an outcome table, dice outcomes on spaces that don't
move by dice, and destinations that are not defined as spaces.

Exits 1 when any error-level issue is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := rootOpts.loadCatalog("data", "")
			if err != nil {
				return err
			}
			issues := cat.Validate()
			res := ValidationResult{
				Valid:  !catalog.HasErrors(issues),
				Spaces: len(cat.Spaces()),
				Cards:  cat.CardCount(),
			}
			for _, is := range issues {
				res.Issues = append(res.Issues, is.String())
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%d spaces, %d cards\n", res.Spaces, res.Cards)
				for _, line := range res.Issues {
					fmt.Fprintln(out, line)
				}
				if res.Valid {
					fmt.Fprintln(out, "catalog OK")
				}
			}
			if !res.Valid {
				return &ExitError{Code: 1, Message: "catalog has errors"}
			}
			return nil
		},
	}
}
