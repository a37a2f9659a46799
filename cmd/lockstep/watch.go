package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lockstep/internal/app"
	"github.com/dshills/lockstep/internal/config"
	"github.com/dshills/lockstep/internal/scrollsync"
	"github.com/dshills/lockstep/internal/session"
	"github.com/dshills/lockstep/internal/telemetry"
	"github.com/dshills/lockstep/internal/typst"
	"github.com/dshills/lockstep/internal/watcher"
)

type watchOptions struct {
	interactive bool
	follow      bool
}

func newWatchCmd(g *globals) *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Render a document on every change and keep both views in sync",
		Long: `Render the document, re-render it whenever the file changes and run the
scroll sync engine against it. With --interactive, viewport events are read
from standard input one per line; type "help" for the list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.watch(cmd.Context(), args[0], opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", true, "Read viewport commands from stdin")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", true, "Re-render when the file changes")
	return cmd
}

func (g *globals) watch(parent context.Context, path string, opts watchOptions, in io.Reader, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, shutdownMetrics, err := telemetry.NewMeterProvider(ctx, g.cfg.Provider(version), g.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			g.log.Error(err, "metric shutdown failed")
		}
	}()
	metrics, err := telemetry.New(provider)
	if err != nil {
		return err
	}

	compiler, err := g.compiler()
	if err != nil {
		return err
	}
	defer func() { _ = compiler.Close() }()

	store, closeStore, err := openStore(ctx, g.cfg.Session)
	if err != nil {
		return err
	}
	defer closeStore()

	appOpts := app.Options{
		Path:     path,
		Compiler: compiler,
		Pages:    typst.NewRasterizer(g.cfg.Render.Typst, g.cfg.Render.PPI, nil, g.log),
		Text:     typst.NewTextExtractor(g.cfg.Render.PDFToText, nil),
		Store:    store,
		Engine:   g.cfg.Engine(),
		Logger:   g.log,
		Metrics:  metrics,
		OnActive: func(a scrollsync.ActiveAnchor) {
			fmt.Fprintf(out, "active %s line %d (%s)\n", a.ID, a.SourceLine+1, a.Origin)
		},
	}

	var fw *watcher.FileWatcher
	if opts.follow {
		fw, err = watcher.New(path,
			watcher.WithDebounce(g.cfg.Render.WatchDebounce.Std()),
			watcher.WithLogger(g.log),
		)
		if err != nil {
			return err
		}
		defer func() { _ = fw.Close() }()
		appOpts.Watcher = fw
	}

	a, err := app.New(appOpts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return a.Run(ctx)
	})
	if fw != nil {
		eg.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-fw.Errors():
					if !ok {
						return nil
					}
					g.log.Error(err, "watch failed")
				}
			}
		})
	}
	if opts.interactive {
		eg.Go(func() error {
			defer cancel()
			return (&repl{ctl: a, out: out, log: g.log}).run(ctx, in)
		})
	}

	return eg.Wait()
}

// openStore returns the configured session store and its cleanup.
func openStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		s, err := session.NewRedisStore(ctx, cfg.RedisURL,
			session.WithPrefix(cfg.Prefix),
			session.WithTTL(cfg.TTL.Std()),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendNone:
		return nil, func() {}, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}
