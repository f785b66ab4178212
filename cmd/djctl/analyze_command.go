package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

type analyzeView struct {
	From domain.Track `json:"from"`
	To   domain.Track `json:"to"`
	services.TransitionAnalysis
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <from-track-id> <to-track-id>",
		Short: "Score the transition between two catalog tracks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := ctx.catalog(cmd)
			if err != nil {
				return err
			}

			var from, to domain.Track
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				t, err := catalog.GetTrack(gctx, args[0])
				if err != nil {
					return fmt.Errorf("fetch %s: %w", args[0], err)
				}
				from = t
				return nil
			})
			g.Go(func() error {
				t, err := catalog.GetTrack(gctx, args[1])
				if err != nil {
					return fmt.Errorf("fetch %s: %w", args[1], err)
				}
				to = t
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			matcher := services.NewBeatMatcher(cfg.BeatMatch())
			view := analyzeView{
				From: from,
				To:   to,
				TransitionAnalysis: services.TransitionAnalysis{
					Compatibility:   matcher.Analyze(from, to),
					TransitionPoint: matcher.FindTransitionPoint(from, to),
				},
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAnalysis(view))
			return nil
		},
	}
}

func renderAnalysis(view analyzeView) string {
	res := view.Compatibility
	point := view.TransitionPoint

	rows := [][]string{
		{"Tempo", yesNo(res.Tempo.Compatible), formatScore(res.Tempo.Score), fmt.Sprintf("%s, %.1f%% apart", res.Tempo.Technique, res.Tempo.Percentage)},
		{"Key", yesNo(res.Key.Compatible), formatScore(res.Key.Score), keyDetail(res.Key)},
		{"Energy", yesNo(res.Energy.Compatible), formatScore(res.Energy.Score), fmt.Sprintf("%s by %.2f", res.Energy.Direction, res.Energy.Difference)},
		{"Overall", "", formatScore(res.Score), fmt.Sprintf("%s, %ds crossfade", res.Technique, res.RecommendedCrossfade)},
	}

	header := fmt.Sprintf("%s - %s  ->  %s - %s\n", view.From.Artist, view.From.Title, view.To.Artist, view.To.Title)
	body := renderTable([]string{"Check", "Compatible", "Score", "Detail"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
	footer := fmt.Sprintf("\nFade out %.1fs-%.1fs, start incoming at %.1fs", point.StartFade, point.EndFade, point.SkipTo)
	return header + body + footer
}

func keyDetail(k domain.KeyMatch) string {
	if k.Relationship == domain.RelationDisabled {
		return "key checks disabled"
	}
	return fmt.Sprintf("%s -> %s (%s)", k.From, k.To, k.Relationship)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
