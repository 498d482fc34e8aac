package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"lawfeed/internal/collate"
	"lawfeed/internal/config"
	"lawfeed/internal/daemon"
	"lawfeed/internal/ingest"
	"lawfeed/internal/runlock"
	"lawfeed/internal/store"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Stage feed files from the incoming directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				return withLaneLock(cfg, runlock.Collate, func() error {
					result, err := ingest.New(cfg, st, logger).IngestAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Staged %d files (%d duplicates, %d failed)\n",
						result.Staged, result.Duplicates, result.Failed)
					return nil
				})
			})
		},
	}
}

func newCollateCommand(ctx *commandContext) *cobra.Command {
	var skipIngest bool

	cmd := &cobra.Command{
		Use:   "collate",
		Short: "Split incoming documents into fragments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				return withLaneLock(cfg, runlock.Collate, func() error {
					out := cmd.OutOrStdout()
					if !skipIngest {
						result, err := ingest.New(cfg, st, logger).IngestAll(cmd.Context())
						if err != nil {
							return err
						}
						if result.Staged > 0 {
							fmt.Fprintf(out, "Staged %d files\n", result.Staged)
						}
					}
					collator := collate.New(st, logger, collate.WithPageSize(cfg.Collate.PageSize))
					count, err := collator.CollateAll(cmd.Context())
					fmt.Fprintf(out, "Collated %d documents\n", count)
					return err
				})
			})
		},
	}

	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "Only collate documents already staged")
	return cmd
}

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Hand pending fragments to their handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				return withLaneLock(cfg, runlock.Dispatch, func() error {
					dispatcher := daemon.NewDispatcher(cfg, st, daemon.Registry(cfg, st, logger), logger)
					summary, err := dispatcher.DispatchPending(cmd.Context())
					fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %d fragments (%d handled, %d unhandled, %d rejected)\n",
						summary.Total(), summary.Handled, summary.Unhandled, summary.Rejected)
					return err
				})
			})
		},
	}
}

func withLaneLock(cfg *config.Config, name string, fn func() error) error {
	err := runlock.With(cfg.LockPath(name), fn)
	if errors.Is(err, runlock.ErrLocked) {
		return fmt.Errorf("%s pass already running (lock %s): %w", name, cfg.LockPath(name), err)
	}
	return err
}
