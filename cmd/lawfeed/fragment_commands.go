package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"lawfeed/internal/config"
	"lawfeed/internal/daemon"
	"lawfeed/internal/dispatch"
	"lawfeed/internal/feed"
	"lawfeed/internal/runlock"
	"lawfeed/internal/store"
)

func newFragmentsCommand(ctx *commandContext) *cobra.Command {
	fragmentsCmd := &cobra.Command{
		Use:     "fragments",
		Aliases: []string{"fragment"},
		Short:   "Inspect and manage stored fragments",
	}

	fragmentsCmd.AddCommand(newFragmentsListCommand(ctx))
	fragmentsCmd.AddCommand(newFragmentsShowCommand(ctx))
	fragmentsCmd.AddCommand(newFragmentsRetryCommand(ctx))
	fragmentsCmd.AddCommand(newFragmentsSetPendingCommand(ctx))

	return fragmentsCmd
}

func newFragmentsListCommand(ctx *commandContext) *cobra.Command {
	var types []string
	var pendingOnly bool
	var document string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fragments, newest publication first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.FragmentFilter{
				PendingOnly: pendingOnly,
				Document:    strings.TrimSpace(document),
				Limit:       limit,
			}
			for _, value := range types {
				fragmentType, err := feed.ParseFragmentType(value)
				if err != nil {
					return err
				}
				filter.Types = append(filter.Types, fragmentType)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store, _ *slog.Logger) error {
				fragments, err := st.ListFragments(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(fragments) == 0 {
					fmt.Fprintln(out, "No fragments found")
					return nil
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					Headers: []string{"ID", "Type", "Published", "Pending", "Processed"},
					Rows:    fragmentRows(fragments),
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Filter by fragment type (repeatable)")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only list fragments awaiting dispatch")
	cmd.Flags().StringVar(&document, "document", "", "Only list fragments of this document")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of fragments (0 for all)")
	return cmd
}

func newFragmentsShowCommand(ctx *commandContext) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a fragment and the changes recorded for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(_ *config.Config, st *store.Store, _ *slog.Logger) error {
				fragment, err := st.FragmentByID(cmd.Context(), id)
				if errors.Is(err, store.ErrFragmentNotFound) {
					return fmt.Errorf("fragment %s not found", id)
				}
				if err != nil {
					return err
				}
				changes, err := st.RecordChanges(cmd.Context(), fragment.ID)
				if err != nil {
					return err
				}
				view := newFragmentView(fragment, changes)
				if asYAML {
					return writeFragmentYAML(cmd.OutOrStdout(), view)
				}
				writeFragmentDetail(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the fragment as YAML")
	return cmd
}

func newFragmentsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Dispatch one fragment again, even if already processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				return withLaneLock(cfg, runlock.Dispatch, func() error {
					dispatcher := daemon.NewDispatcher(cfg, st, daemon.Registry(cfg, st, logger), logger)
					fragment, err := dispatcher.DispatchOne(cmd.Context(), id, true)
					if errors.Is(err, dispatch.ErrNotFound) {
						return fmt.Errorf("fragment %s not found", id)
					}
					if err != nil {
						return fmt.Errorf("retry %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %s (pending: %s, processed %d times)\n",
						fragment.ID, yesNo(fragment.PendingProcessing), fragment.ProcessedCount)
					return nil
				})
			})
		},
	}
}

func newFragmentsSetPendingCommand(ctx *commandContext) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "set-pending <id>",
		Short: "Set or clear the pending flag of a fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				return withLaneLock(cfg, runlock.Dispatch, func() error {
					dispatcher := daemon.NewDispatcher(cfg, st, daemon.Registry(cfg, st, logger), logger)
					fragment, err := dispatcher.SetPending(cmd.Context(), id, pending)
					if errors.Is(err, dispatch.ErrNotFound) {
						return fmt.Errorf("fragment %s not found", id)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Fragment %s pending: %s\n", fragment.ID, yesNo(fragment.PendingProcessing))
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", true, "Pending flag value")
	return cmd
}

func newChangesCommand(ctx *commandContext) *cobra.Command {
	var fragmentID string

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "List record changes applied by handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store, _ *slog.Logger) error {
				changes, err := st.RecordChanges(cmd.Context(), strings.TrimSpace(fragmentID))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(changes) == 0 {
					fmt.Fprintln(out, "No record changes")
					return nil
				}
				rows := make([][]string, 0, len(changes))
				for _, change := range changes {
					rows = append(rows, []string{
						formatTimestamp(change.CreatedAt),
						change.FragmentID,
						change.Kind,
						change.Key,
						change.Detail,
					})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					Headers: []string{"Recorded", "Fragment", "Kind", "Key", "Detail"},
					Rows:    rows,
					Wrap:    map[int]int{4: detailWidth},
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fragmentID, "fragment", "", "Only list changes of this fragment")
	return cmd
}
