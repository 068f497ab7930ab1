package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// SimulationResult summarizes an all-AI match.
type SimulationResult struct {
	Seed     uint64          `json:"seed"`
	Turns    int             `json:"turns"`
	Finished bool            `json:"finished"`
	Winner   string          `json:"winner,omitempty"`
	Players  []PlayerSummary `json:"players"`
	LogSize  int             `json:"logEntries"`
}

// PlayerSummary is one seat's final position and resources.
type PlayerSummary struct {
	ID        string `json:"id"`
	Space     string `json:"space"`
	Money     int    `json:"money"`
	TimeSpent int    `json:"timeSpent"`
	Cards     int    `json:"cards"`
}

type simulateOptions struct {
	players int
	turns   int
	seed    uint64
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play an all-AI match headlessly and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := rootOpts.loadCatalog("data", "")
			if err != nil {
				return err
			}
			res, err := Simulate(cat, engine.DefaultRules(), opts.players, opts.turns, opts.seed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, res)
			}
			status := "unfinished"
			if res.Finished {
				status = "won by " + res.Winner
			}
			fmt.Fprintf(out, "seed %d: %d turns, %s\n", res.Seed, res.Turns, status)
			for _, p := range res.Players {
				fmt.Fprintf(out, "  %-6s %-24s money %9d  time %4d  cards %d\n", p.ID, p.Space, p.Money, p.TimeSpent, p.Cards)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.players, "players", 2, "number of AI seats")
	cmd.Flags().IntVar(&opts.turns, "turns", 200, "stop after this many turns")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "dice and shuffle seed")
	return cmd
}

// Simulate seats players AI seats on cat and auto-plays until a seat reaches
// an ending space or maxTurns turns have been played.
func Simulate(cat engine.Catalog, rules engine.Rules, players, maxTurns int, seed uint64) (SimulationResult, error) {
	if players < 1 {
		return SimulationResult{}, &ExitError{Code: 2, Message: "--players must be at least 1"}
	}
	e := engine.New(cat, engine.WithRules(rules), engine.WithSeed(seed))
	for i := 1; i <= players; i++ {
		id := fmt.Sprintf("ai%d", i)
		if err := e.AddPlayer(engine.PlayerSpec{ID: id, Name: fmt.Sprintf("AI %d", i), IsAI: true}); err != nil {
			return SimulationResult{}, fmt.Errorf("seat %s: %w", id, err)
		}
	}
	if err := e.StartGame(); err != nil {
		return SimulationResult{}, err
	}

	for {
		g := e.GetGameState()
		if g.Phase != engine.PhasePlay || g.Turn > maxTurns {
			break
		}
		if _, err := e.AutoPlayTurn(g.CurrentPlayerID); err != nil {
			return SimulationResult{}, fmt.Errorf("turn %d (%s): %w", g.Turn, g.CurrentPlayerID, err)
		}
	}

	g := e.GetGameState()
	res := SimulationResult{
		Seed:     seed,
		Turns:    g.Turn,
		Finished: g.Phase == engine.PhaseEnd,
		LogSize:  len(g.GlobalActionLog),
	}
	if res.Finished {
		res.Winner = g.CurrentPlayerID
	} else {
		res.Turns = maxTurns
	}
	for _, p := range g.Players {
		res.Players = append(res.Players, PlayerSummary{
			ID:        p.ID,
			Space:     p.CurrentSpace,
			Money:     p.Money,
			TimeSpent: p.TimeSpent,
			Cards:     len(p.Hand),
		})
	}
	return res, nil
}
