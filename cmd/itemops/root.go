package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/itemops/config"
	"github.com/jonwraymond/itemops/engine"
	"github.com/jonwraymond/itemops/observe"
)

var version = "dev"

// app carries the state shared by the subcommands of one invocation.
type app struct {
	configPath  string
	catalogPath string
	logLevel    string

	engine *engine.Engine
	logger observe.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "itemops",
		Short: "Item catalog classification and handler lookup",
		Long: `itemops loads an item catalog together with its group definitions,
GUID filters and handler ordering, then classifies items into groups,
searches their display text and resolves the handlers that use them.`,
		Version:            version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", ".",
		"config file, or directory holding itemops.yaml and .env")
	flags.StringVar(&a.catalogPath, "catalog", "",
		"catalog file (overrides files.catalog)")
	flags.StringVar(&a.logLevel, "log-level", "warn",
		"log level: debug|info|warn|error")

	root.AddCommand(
		newClassifyCmd(a),
		newSearchCmd(a),
		newKeyCmd(a),
		newGroupsCmd(a),
		newHandlersCmd(a),
		newWatchCmd(a),
		newHealthCmd(a),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	info, err := os.Stat(a.configPath)
	switch {
	case err == nil && !info.IsDir():
		return config.LoadFile(a.configPath)
	case err == nil, errors.Is(err, os.ErrNotExist):
		return config.Load(a.configPath)
	default:
		return nil, fmt.Errorf("config: %w", err)
	}
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if a.catalogPath != "" {
		cfg.Files.Catalog = a.catalogPath
	}

	zl, err := observe.NewZap(observe.LoggingConfig{Enabled: true, Level: a.logLevel, Format: "console"})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.logger = observe.FromZap(zl.Named("itemops"))

	a.engine, err = engine.New(cmd.Context(), cfg, engine.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := a.engine.Reload(cmd.Context()); err != nil {
		// Rejected lines are reported; everything valid stays installed.
		a.logger.Warn(cmd.Context(), "definitions loaded with errors", observe.ErrorField(err))
	}
	return nil
}

func (a *app) close(cmd *cobra.Command, _ []string) error {
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close(cmd.Context())
	_ = a.logger.Sync()
	return err
}
