package main

import (
	"github.com/RyanBlaney/sonido-huella/logging"
	"github.com/RyanBlaney/sonido-huella/pipeline"
	"github.com/RyanBlaney/sonido-huella/pipeline/cache"
	"github.com/RyanBlaney/sonido-huella/pipeline/config"
	"github.com/spf13/cobra"
)

// commandContext carries lazily initialized shared state between commands
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	cfg      *config.Config
	pipeline *pipeline.FeaturePipeline
	store    *cache.Store
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

// ensurePipeline loads configuration and builds the pipeline on first use
func (c *commandContext) ensurePipeline() (*pipeline.FeaturePipeline, error) {
	if c.pipeline != nil {
		return c.pipeline, nil
	}

	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg

	levelName := cfg.LogLevel
	if *c.logLevelFlag != "" {
		levelName = *c.logLevelFlag
	}
	logging.SetLevel(logging.ParseLevel(levelName))

	var shared cache.SharedTier
	if cfg.Cache.Dir != "" {
		tier, err := cache.NewBadgerTier(cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		shared = tier
	}
	c.store = cache.NewStore(&cache.StoreConfig{
		TTL:           cfg.Cache.TTL,
		SweepInterval: cfg.Cache.SweepInterval,
	}, shared)

	c.pipeline = pipeline.NewFeaturePipeline(cfg, nil, nil, c.store)
	return c.pipeline, nil
}

// close releases resources opened by ensurePipeline
func (c *commandContext) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			logging.Warn("cache close failed", logging.Fields{"error": err.Error()})
		}
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "huella",
		Short:         "Audio feature extraction and similarity comparison",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))

	return rootCmd
}
