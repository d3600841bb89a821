package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-engagement-backend/internal/services"
)

var (
	recomputePostID string
	trendingLimit   int
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild post statistics from the event log",
	Long:  "Rebuilds the stats row and cache of one post (--post) or of every post that has views or likes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *deps) error {
			if recomputePostID != "" {
				st, err := rt.app.Stats.Recompute(ctx, recomputePostID)
				if err != nil {
					return err
				}
				return writeJSON(cmd, st)
			}
			n, err := rt.app.RecomputeAll(ctx)
			log.Info().Int("posts", n).Msg("stats rebuilt")
			return err
		})
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Print the current trending posts as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *deps) error {
			items, err := rt.app.Trending.Get(ctx, trendingLimit)
			if err != nil {
				return err
			}
			return writeJSON(cmd, items)
		})
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputePostID, "post", "", "post id to rebuild (default: all posts)")
	trendingCmd.Flags().IntVar(&trendingLimit, "limit", services.DefaultTrendingLimit, "number of posts")
}

// withRuntime runs fn against a bootstrapped runtime and always tears it down.
func withRuntime(ctx context.Context, fn func(context.Context, *deps) error) error {
	rt, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, rt)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, rt.close(closeCtx))
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
