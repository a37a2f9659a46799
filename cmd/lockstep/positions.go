package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/lockstep/internal/anchor"
	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/render"
	"github.com/dshills/lockstep/internal/typst"
)

func newPositionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "positions <file>",
		Short: "Compile a document once and print its anchor offset table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.positions(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
}

func (g *globals) positions(ctx context.Context, path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	compiler, err := g.compiler()
	if err != nil {
		return err
	}
	defer func() { _ = compiler.Close() }()

	doc, err := compiler.Compile(ctx, string(data))
	if err != nil {
		return err
	}
	raster := typst.NewRasterizer(g.cfg.Render.Typst, g.cfg.Render.PPI, nil, g.log)
	metrics, err := raster.PageMetrics(ctx, doc.Artifact)
	if err != nil {
		return err
	}
	items, err := typst.NewTextExtractor(g.cfg.Render.PDFToText, nil).TextItems(ctx, doc.Artifact)
	if err != nil {
		g.log.Info("text extraction unavailable", "error", err.Error())
	}

	table := position.NewLadder(g.cfg.Engine().Layout, g.log).Table(position.Inputs{
		Generation: 1,
		Metrics:    metrics,
		Anchors:    doc.Anchors,
		TextItems:  items,
	})
	return printTable(w, doc, metrics, table)
}

func (g *globals) compiler() (*typst.Compiler, error) {
	return typst.NewCompiler(g.cfg.Render.WorkDir,
		typst.WithBinary(g.cfg.Render.Typst),
		typst.WithLogger(g.log),
	)
}

func printTable(w io.Writer, doc *render.Document, metrics []anchor.PageMetric, table *position.OffsetTable) error {
	lines := make(map[string]int, len(doc.Anchors))
	for _, a := range doc.Anchors {
		lines[a.ID] = a.SourceLine
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLINE\tOFFSET\tRUNG")
	for _, e := range table.Entries() {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%s\n", e.ID, lines[e.ID]+1, e.Offset, e.Rung)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d anchors placed (%s), %d pages, %.0fpx\n",
		table.Len(), len(doc.Anchors), table.Rung(), len(metrics), table.TotalHeight())
	return err
}
