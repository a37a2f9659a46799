package main

import (
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/dshills/lockstep/internal/config"
	"github.com/dshills/lockstep/internal/logging"
)

// globals is the state shared by every subcommand once the root command
// has loaded the configuration.
type globals struct {
	configPath string
	logLevel   string
	dev        bool

	cfg  config.Config
	log  logr.Logger
	sync func()
}

func newRootCmd() *cobra.Command {
	g := &globals{log: logr.Discard(), sync: func() {}}

	root := &cobra.Command{
		Use:   "lockstep",
		Short: "Keep a markdown editor and its typeset preview scrolled together",
		Long: `lockstep renders markdown through typst and keeps the editor viewport and
the paginated preview pointing at the same section of the document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			g.sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", config.DefaultPath(), "Path to configuration file")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	flags.BoolVarP(&g.dev, "debug", "d", false, "Human-readable development logging")

	root.AddCommand(
		newAnchorsCmd(g),
		newPositionsCmd(g),
		newWatchCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globals) init() error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.dev {
		cfg.Logging.Development = true
	}

	log, sync, err := logging.New(nil, cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	g.cfg, g.log, g.sync = cfg, log, sync
	return nil
}
