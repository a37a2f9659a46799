package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/lockstep/internal/typst"
)

func newAnchorsCmd(g *globals) *cobra.Command {
	var showSource bool
	cmd := &cobra.Command{
		Use:   "anchors <file>",
		Short: "List the anchors injected into a markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := typst.Preprocess(string(data))
			if showSource {
				_, err := fmt.Fprint(cmd.OutOrStdout(), out.Markdown)
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLINE\tOFFSET")
			for _, a := range out.Anchors {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", a.ID, a.SourceLine+1, a.SourceOffset)
			}
			g.log.V(1).Info("preprocessed", "file", args[0], "anchors", len(out.Anchors))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&showSource, "source", false, "Print the preprocessed markdown instead")
	return cmd
}
