// Package cli implements kanbanctl, a terminal front end for the board.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server string
	Format string // "text" | "json"

	// Transport replaces the HTTP transport; nil uses the default.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for kanbanctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kanbanctl",
		Short: "Work the kanban board from a terminal",
		Long:  "kanbanctl lists, edits and moves tickets on a kanban server and shows their audit history.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", defaultServer(), "API base URL including the /api prefix (env KANBAN_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newBoardCommand(opts))
	cmd.AddCommand(newCreateCommand(opts))
	cmd.AddCommand(newUpdateCommand(opts))
	cmd.AddCommand(newMoveCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newTimelineCommand(opts))

	return cmd
}

func defaultServer() string {
	if v := os.Getenv("KANBAN_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080/api"
}

// openStore connects to the server and loads the board snapshot.
func openStore(ctx context.Context, opts *RootOptions) (*client.Store, error) {
	api := client.NewClient(opts.Server)
	if opts.Transport != nil {
		api.WithTransport(opts.Transport)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := client.NewStore(api, logger)
	if err := store.Load(ctx); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load board from "+opts.Server, err)
	}
	return store, nil
}
