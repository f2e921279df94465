package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"skill-match/internal/app"
	"skill-match/internal/config"
	"skill-match/internal/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const appName = "skill-match-engine"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          appName,
		Short:        "Maintenance commands for the recommendation engine: migrations, training and batch recomputes",
		SilenceUsage: true,
	}
)

// Execute runs the selected command; SIGINT/SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (env and .env are always read)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func loadConfig() (config.Config, *zap.Logger) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("loading config: %s", err)
	}
	cfg.Log.JSON = cfg.Log.JSON || viper.GetBool("json")
	cfg.Log.Debug = cfg.Log.Debug || viper.GetBool("debug")

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return cfg, zl
}

// withContainer runs fn against a fully wired container and closes it afterwards.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, zl := loadConfig()
	defer func() { _ = zl.Sync() }()

	c, err := app.NewContainer(cfg, zl)
	if err != nil {
		zl.Error("building container", zap.Error(err))
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			zl.Warn("closing container", zap.Error(err))
		}
	}()

	if err := fn(cmd.Context(), c); err != nil {
		zl.Error(cmd.Name()+" failed", zap.Error(err))
		return err
	}
	return nil
}
