package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tomaszsb/Game-alpha-sub005/internal/cache"
	"github.com/tomaszsb/Game-alpha-sub005/internal/config"
	"github.com/tomaszsb/Game-alpha-sub005/internal/database"
)

// HistoryResult is what the stores hold for one game.
type HistoryResult struct {
	GameID   uuid.UUID                `json:"gameId"`
	Actions  []cache.GameActionRecord `json:"actions,omitempty"`
	Snapshot *database.Snapshot       `json:"snapshot,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <game-id>",
		Short: "Print a game's mirrored action log and latest snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := uuid.Parse(args[0])
			if err != nil {
				return &ExitError{Code: 2, Message: fmt.Sprintf("invalid game id %q", args[0])}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" && cfg.Postgres.DSN == "" {
				return &ExitError{Code: 2, Message: "neither TURNENGINE_REDIS_ADDR nor TURNENGINE_POSTGRES_DSN is set"}
			}

			ctx := cmd.Context()
			res := HistoryResult{GameID: gameID}
			if cfg.Redis.Addr != "" {
				if err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
					return err
				}
				defer cache.Close()
				if res.Actions, err = cache.GameActions(ctx, gameID); err != nil {
					return err
				}
			}
			if cfg.Postgres.DSN != "" {
				if err := database.Connect(ctx, cfg.Postgres.DSN); err != nil {
					return err
				}
				defer database.Close()
				snap, err := database.LatestSnapshot(ctx, gameID)
				if err != nil && !errors.Is(err, database.ErrNotFound) {
					return err
				}
				res.Snapshot = snap
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, res)
			}
			for _, a := range res.Actions {
				at := time.UnixMilli(a.Timestamp).UTC().Format(time.RFC3339)
				fmt.Fprintf(out, "%4d %s %-10s %-20s %v\n", a.ActionIndex, at, a.ActorUserID, a.ActionType, a.ActionPayload)
			}
			if s := res.Snapshot; s != nil {
				fmt.Fprintf(out, "latest snapshot: turn %d (%s), phase %s", s.Turn, s.Kind, s.State.Phase)
				if s.WinnerID != "" {
					fmt.Fprintf(out, ", winner %s", s.WinnerID)
				}
				fmt.Fprintln(out)
			} else if cfg.Postgres.DSN != "" {
				fmt.Fprintln(out, "no snapshot stored")
			}
			return nil
		},
	}
}
