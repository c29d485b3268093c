package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hoopsight/adapters/nbastats"
	"hoopsight/domain/nba"
	"hoopsight/internal/config"
	"hoopsight/internal/dataset"
	"hoopsight/internal/errors"
	"hoopsight/internal/logging"
	"hoopsight/internal/model"
	"hoopsight/internal/pipeline"
	"hoopsight/internal/projection"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hoopsight",
		Short: "NBA game-log pipeline: ingest, cluster, train, project",
	}

	rootCmd.AddCommand(
		newPipelineCmd(),
		newScheduleCmd(),
		newPredictCmd(),
		newProjectionsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads .env, configuration, and the logger shared by every command.
func setup() (*config.Config, *logrus.Logger, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(), nil
}

func newPipelineCmd() *cobra.Command {
	var players []string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full refresh: ingest, cluster, engineer, train",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			client := nbastats.NewClient(cfg.Fetch, logger)
			return pipeline.New(cfg, client, logger).Run(cmd.Context(), players)
		},
	}
	cmd.Flags().StringSliceVar(&players, "players", nil,
		"player names to ingest (default: all active players)")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Refresh the upcoming-games cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			client := nbastats.NewClient(cfg.Fetch, logger)
			return pipeline.New(cfg, client, logger).FetchSchedule(cmd.Context())
		},
	}
}

func newPredictCmd() *cobra.Command {
	var playerName string
	var opponent string
	var offline bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Project one player's next game",
		RunE: func(cmd *cobra.Command, args []string) error {
			if playerName == "" {
				return errors.InvalidInput("--player is required")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			raw := dataset.NewRawStore(cfg.Paths.RawDir)
			ref, err := findSnapshot(raw, playerName)
			if err != nil {
				return err
			}

			var live projection.LiveSource
			if !offline {
				live = nbastats.NewClient(cfg.Fetch, logger)
			}
			season := cfg.Seasons[len(cfg.Seasons)-1]
			engine := projection.NewEngine(
				raw,
				dataset.NewProcessedStore(cfg.Paths.ProcessedDir),
				model.NewStore(cfg.Paths.ModelDir),
				live, season, logger,
			)

			proj, err := engine.ProjectPlayer(cmd.Context(), ref, strings.ToUpper(opponent))
			if err != nil {
				return err
			}
			printProjection(proj)
			return nil
		},
	}
	cmd.Flags().StringVar(&playerName, "player", "", "player display name")
	cmd.Flags().StringVar(&opponent, "opponent", "", "opponent team abbreviation (default: next scheduled game)")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the live current-season refresh")
	return cmd
}

func newProjectionsCmd() *cobra.Command {
	var out string
	var offline bool

	cmd := &cobra.Command{
		Use:   "projections",
		Short: "Project every snapshotted player's next game to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			var live projection.LiveSource
			if !offline {
				live = nbastats.NewClient(cfg.Fetch, logger)
			}
			season := cfg.Seasons[len(cfg.Seasons)-1]
			engine := projection.NewEngine(
				dataset.NewRawStore(cfg.Paths.RawDir),
				dataset.NewProcessedStore(cfg.Paths.ProcessedDir),
				model.NewStore(cfg.Paths.ModelDir),
				live, season, logger,
			)

			slate, err := engine.ProjectSlate(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(cfg.Paths.ProcessedDir, "slate_projections.csv")
			}
			if err := projection.WriteSlateCSV(out, slate); err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"players": len(slate),
				"path":    out,
			}).Info("Slate projections written")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default: <processed dir>/slate_projections.csv)")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip live current-season refreshes")
	return cmd
}

// findSnapshot resolves a display name against the raw store's per-player
// snapshots, reusing the index matching rules (exact first, then substring).
func findSnapshot(raw *dataset.RawStore, name string) (dataset.PlayerRef, error) {
	refs, err := raw.ListPlayers()
	if err != nil {
		return dataset.PlayerRef{}, err
	}
	index := make([]nba.Player, len(refs))
	for i, ref := range refs {
		index[i] = nba.Player{ID: ref.PlayerID, Name: ref.PlayerName, Active: true}
	}
	player, ok := nba.FindPlayer(index, name)
	if !ok {
		return dataset.PlayerRef{}, errors.NotFound("snapshot for player " + name)
	}
	for _, ref := range refs {
		if ref.PlayerID == player.ID {
			return ref, nil
		}
	}
	return dataset.PlayerRef{}, errors.NotFound("snapshot for player " + name)
}

func printProjection(p *projection.Projection) {
	venue := "@"
	if p.Home {
		venue = "vs."
	}
	fmt.Printf("%s (%s) %s %s on %s\n", p.PlayerName, p.Team, venue, p.Opponent, p.GameDate)
	for _, target := range model.Targets {
		if v, ok := p.Predicted[target]; ok {
			fmt.Printf("  %-5s %6.1f\n", target, v)
		}
	}
	fmt.Printf("  baseline PTS (5-game avg) %6.1f\n", p.BaselinePTS)
}
