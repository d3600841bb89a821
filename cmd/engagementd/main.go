// Command engagementd serves the blog engagement API and runs its
// maintenance jobs (stats rebuilds, trending snapshots).
//
// @title       Engagement API
// @version     1.0
// @description View, like and engagement tracking with per-post statistics and trending.
// @BasePath    /api/v1
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-engagement-backend/internal/config"
	"github.com/tbourn/go-engagement-backend/internal/sysutil"
)

// version is stamped at build time: -ldflags "-X main.version=..."
var version string

var (
	envFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:           "engagementd",
	Short:         "Blog engagement tracking service",
	Long:          "engagementd records post views, likes and reading engagement, and serves per-post statistics and trending posts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside local development.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, map[string]string{
			"service": cfg.OTEL.ServiceName,
			"version": appVersion(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(trendingCmd)
}

func appVersion() string {
	return sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("engagementd failed")
		os.Exit(1)
	}
}
