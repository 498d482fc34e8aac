package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lawfeed/internal/collate"
	"lawfeed/internal/config"
	"lawfeed/internal/ingest"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var encoding string
	var showText bool

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Preview the fragments of a feed file without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.commandLogger(cfg)
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			label := strings.TrimSpace(encoding)
			if label == "" {
				label = cfg.Feed.DefaultEncoding
			}
			doc, err := ingest.LoadDocument(path, label, time.Time{})
			if err != nil {
				return err
			}

			fragments := collate.New(nil, logger).Preview(doc)
			out := cmd.OutOrStdout()
			if len(fragments) == 0 {
				fmt.Fprintf(out, "No fragments found in %s\n", doc.Name)
				return nil
			}
			if showText {
				for _, fragment := range fragments {
					fmt.Fprintf(out, "== %s ==\n%s\n", fragment.ID, fragment.Text)
				}
				return nil
			}
			rows := make([][]string, 0, len(fragments))
			for _, fragment := range fragments {
				rows = append(rows, []string{
					strconv.Itoa(fragment.Sequence),
					string(fragment.Type),
					fragment.ID,
					strconv.Itoa(strings.Count(fragment.Text, "\n") + 1),
				})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				Headers: []string{"Seq", "Type", "ID", "Lines"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			}))
			return nil
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "", "Charset of the file (defaults to feed.default_encoding)")
	cmd.Flags().BoolVar(&showText, "text", false, "Print fragment bodies instead of a summary table")
	return cmd
}
