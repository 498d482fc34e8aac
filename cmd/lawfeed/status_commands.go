package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"lawfeed/internal/config"
	"lawfeed/internal/feed"
	"lawfeed/internal/runlock"
	"lawfeed/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize documents, fragments and lane activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store, _ *slog.Logger) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				p := newStatusPrinter(out)

				p.header("Lanes")
				if lockHeld(cfg.LockPath(runlock.Daemon)) {
					p.line("Daemon", statusOK, "running")
				} else {
					p.line("Daemon", statusInfo, "stopped")
				}
				for _, name := range []string{runlock.Collate, runlock.Dispatch} {
					if lockHeld(cfg.LockPath(name)) {
						p.line(name, statusWarn, "pass in progress")
					} else {
						p.line(name, statusInfo, "idle")
					}
				}

				docKind := statusOK
				if stats.IncomingDocuments > 0 {
					docKind = statusWarn
				}
				p.line("Incoming documents", docKind, strconv.Itoa(stats.IncomingDocuments))
				p.line("Archived documents", statusInfo, strconv.Itoa(stats.ArchivedDocuments))
				p.line("Record changes", statusInfo, strconv.Itoa(stats.RecordChanges))
				fmt.Fprintln(out)

				rows := fragmentStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No fragments stored")
					return nil
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					Headers: []string{"Type", "Pending", "Processed"},
					Rows:    rows,
					Aligns:  []columnAlignment{alignLeft, alignRight, alignRight},
					Footer:  []string{"Total", strconv.Itoa(stats.PendingFragments), strconv.Itoa(stats.ProcessedFragments)},
				}))
				return nil
			})
		},
	}
}

// lockHeld probes a lane lock without keeping it.
func lockHeld(path string) bool {
	lock, err := runlock.Acquire(path)
	if err != nil {
		return errors.Is(err, runlock.ErrLocked)
	}
	_ = lock.Release()
	return false
}

func fragmentStatusRows(stats store.Stats) [][]string {
	var rows [][]string
	for _, fragmentType := range feed.AllTypes() {
		counts, ok := stats.ByType[fragmentType]
		if !ok {
			continue
		}
		rows = append(rows, []string{string(fragmentType), strconv.Itoa(counts.Pending), strconv.Itoa(counts.Processed)})
	}
	return rows
}

func newAnomaliesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "anomalies",
		Short: "List archived documents that produced no fragments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store, _ *slog.Logger) error {
				docs, err := st.ArchivedWithoutFragments(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintln(out, "No anomalies found")
					return nil
				}
				rows := make([][]string, 0, len(docs))
				for _, doc := range docs {
					archived := "-"
					if doc.ArchivedAt != nil {
						archived = formatTimestamp(*doc.ArchivedAt)
					}
					rows = append(rows, []string{doc.Name, formatTimestamp(doc.PublishedAt), archived, doc.Encoding})
				}
				fmt.Fprintln(out, renderTable(tableSpec{Headers: []string{"Document", "Published", "Archived", "Encoding"}, Rows: rows}))
				return nil
			})
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the feed database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store, _ *slog.Logger) error {
				health, err := st.CheckHealth(cmd.Context())
				p := newStatusPrinter(cmd.OutOrStdout())
				p.line("Database", statusInfo, health.DBPath)
				p.check("Exists", health.DatabaseExists)
				p.check("Readable", health.DatabaseReadable)
				p.line("Schema version", statusInfo, strconv.Itoa(health.SchemaVersion))
				p.check("Integrity", health.IntegrityCheck)
				if err != nil {
					return fmt.Errorf("database health: %w", err)
				}
				if !health.IntegrityCheck {
					return errors.New("database integrity check failed")
				}
				return nil
			})
		},
	}
}
