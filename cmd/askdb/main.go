package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askdb/internal/config"
	"askdb/internal/oracle"
	"askdb/internal/pipeline"
	"askdb/internal/store"
)

var (
	flagSettings string
	flagRoot     string
	flagVerbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "askdb",
		Short: "askdb - natural language questions over a corpus of SQLite stores",
		Long: `askdb routes a free-text question to the right SQLite store, grounds a
translation prompt in just enough schema context, generates candidate SQL,
selects by execution, and repairs failing candidates from engine errors.`,
	}

	rootCmd.PersistentFlags().StringVar(&flagSettings, "settings", "", "path to a JSON settings file")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "override the stores root directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(dbsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildPipeline does the startup sequence shared by every subcommand:
// settings, logger, corpus scan, pipeline with its routing index.
func buildPipeline() (*pipeline.Pipeline, config.Settings, *zap.Logger, error) {
	cfg, err := config.Load(flagSettings)
	if err != nil {
		return nil, cfg, nil, err
	}
	if flagRoot != "" {
		cfg.StoresRoot = flagRoot
	}

	logger, err := newLogger()
	if err != nil {
		return nil, cfg, nil, err
	}

	start := time.Now()
	found, err := store.Scan(cfg.StoresRoot, store.ScanOptions{
		Extensions:       cfg.StoreExtensions,
		TemplateSuffixes: cfg.TemplateSuffixes,
		TablePreviewMax:  cfg.TablePreviewMax,
	})
	if err != nil {
		return nil, cfg, logger, fmt.Errorf("failed to scan stores root: %w", err)
	}
	registry := store.NewRegistry(found)
	logger.Info("store scan finished",
		zap.String("root", cfg.StoresRoot),
		zap.Int("stores", registry.Len()),
		zap.Duration("elapsed", time.Since(start)))

	oracleClient := oracle.NewClient(oracle.Config{
		BaseURL:   cfg.OracleBaseURL,
		Model:     cfg.OracleModel,
		KeepAlive: cfg.OracleKeepAlive,
		Timeout:   cfg.OracleTimeout(),
	}, logger)

	return pipeline.New(cfg, registry, oracleClient, logger), cfg, logger, nil
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
