package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanpartridge/conduit-dj/internal/adapters/sqlite"
	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

type queueOptions struct {
	mode        string
	size        int
	energy      float64
	seed        string
	withHistory bool
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var opts queueOptions

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Build a one-off queue from catalog recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target *float64
			if cmd.Flags().Changed("energy") {
				if opts.energy < 0 || opts.energy > 1 {
					return errors.New("--energy must be between 0 and 1")
				}
				target = &opts.energy
			}
			res, err := buildQueue(cmd, ctx, opts, target)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderQueue(res))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", domain.DefaultMode, "DJ mode to build for")
	cmd.Flags().IntVarP(&opts.size, "size", "n", 0, "Number of tracks (defaults to queue.min_queue_size)")
	cmd.Flags().Float64Var(&opts.energy, "energy", 0, "Target energy override (0-1)")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "Catalog track ID to mix out of")
	cmd.Flags().BoolVar(&opts.withHistory, "history", false, "Use recent plays from the configured database for diversity")
	return cmd
}

func buildQueue(cmd *cobra.Command, ctx *commandContext, opts queueOptions, target *float64) (services.BuildResult, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return services.BuildResult{}, err
	}
	catalog, err := ctx.catalog(cmd)
	if err != nil {
		return services.BuildResult{}, err
	}

	queueCfg := cfg.QueueConfig()
	mode := strings.ToLower(strings.TrimSpace(opts.mode))
	profile := queueCfg.Profile(mode)

	var seed *domain.Track
	if opts.seed != "" {
		t, err := catalog.GetTrack(cmd.Context(), opts.seed)
		if err != nil {
			return services.BuildResult{}, fmt.Errorf("fetch seed track: %w", err)
		}
		seed = &t
	}

	energy := profile.TargetEnergy
	if target != nil {
		energy = *target
	}
	pool, err := catalog.Candidates(cmd.Context(), ports.CandidateQuery{
		Genres:       profile.Genres,
		Seed:         seed,
		TargetEnergy: energy,
		TempoRange:   profile.TempoRange,
		Limit:        cfg.Queue.CandidateLimit,
	})
	if err != nil {
		return services.BuildResult{}, fmt.Errorf("fetch candidates: %w", err)
	}
	if seed != nil {
		pool = slices.DeleteFunc(pool, func(t domain.Track) bool { return t.ID == seed.ID })
	}

	history := domain.NewHistory(queueCfg.ArtistRepeatLimit)
	if opts.withHistory {
		store, err := sqlite.NewAdapter(cfg.Storage.Path)
		if err != nil {
			return services.BuildResult{}, fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		recent, err := store.RecentPlays(cmd.Context(), history.Cap())
		if err != nil {
			return services.BuildResult{}, fmt.Errorf("load recent plays: %w", err)
		}
		for _, t := range recent {
			history.Add(t)
		}
	}

	matcher := services.NewBeatMatcher(cfg.BeatMatch())
	builder := services.NewQueueBuilder(matcher, queueCfg)
	return builder.Build(pool, history, services.BuildOptions{
		Size:         opts.size,
		Mode:         mode,
		CurrentTrack: seed,
		TargetEnergy: target,
	}), nil
}

func renderQueue(res services.BuildResult) string {
	rows := make([][]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		f := e.Track.Features
		bpm := "-"
		if tempo, ok := f.TempoBPM(); ok {
			bpm = strconv.FormatFloat(tempo, 'f', 0, 64)
		}
		key := "-"
		if f.Key != nil {
			key = domain.CamelotOf(*f.Key, f.ModeOr(domain.Minor)).String()
		}
		energy := "-"
		if f.Energy != nil {
			energy = strconv.FormatFloat(*f.Energy, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Position + 1),
			e.Track.Artist + " - " + e.Track.Title,
			bpm,
			key,
			energy,
			formatScore(e.Score),
			e.Reason,
		})
	}

	summary := fmt.Sprintf("Mode %s, target energy %.2f: %d of %d tracks (%s)",
		res.Mode, res.TargetEnergy, len(res.Entries), res.Requested, res.Stop)
	if len(rows) == 0 {
		return summary
	}
	table := renderTable(
		[]string{"#", "Track", "BPM", "Key", "Energy", "Score", "Reason"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
	)
	return table + "\n" + summary
}
