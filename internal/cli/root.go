// Package cli implements the turnengine command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomaszsb/Game-alpha-sub005/internal/catalog"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir       string
	CatalogFormat string
	Format        string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "turnengine",
		Short: "Turn and effect engine for the project-management board game",
		Long: `turnengine loads a board catalog (CSV directory or YAML file) and runs
matches on it: headless simulations, catalog checks, or a WebSocket server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data", "", "catalog directory (CSV) or file (YAML); defaults to TURNENGINE_DATA_DIR")
	cmd.PersistentFlags().StringVar(&opts.CatalogFormat, "catalog-format", "", "catalog format (csv|yaml); inferred when empty")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	return cmd
}

// loadCatalog loads the catalog named by the flags, falling back to dir and
// format when the flags are empty.
func (o *RootOptions) loadCatalog(dir, format string) (*catalog.Catalog, error) {
	if o.DataDir != "" {
		dir = o.DataDir
	}
	if o.CatalogFormat != "" {
		format = o.CatalogFormat
	}
	if dir == "" {
		return nil, &ExitError{Code: 2, Message: "no catalog given: use --data"}
	}
	cat, err := catalog.Load(dir, catalog.Format(format))
	if err != nil {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("load catalog: %v", err)}
	}
	return cat, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
