package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/forever-vivid/internal/app"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/livequery"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/session"
)

// firstSnapshot subscribes, takes the first delivered snapshot and releases.
func firstSnapshot[T any](ctx context.Context, a *app.App, sess session.Session, s livequery.Schema[T], timeout time.Duration) ([]T, error) {
	if !sess.Ready() {
		return nil, notReady(sess)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	got := make(chan livequery.Snapshot[T], 1)
	h, err := livequery.Subscribe(ctx, sess, s, a.QueryOptions(), func(snap livequery.Snapshot[T]) {
		select {
		case got <- snap:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer h.Release()

	select {
	case snap := <-got:
		if snap.Err != nil {
			return nil, snap.Err
		}
		return snap.Records, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", s.Collection, ctx.Err())
	}
}

// watch renders every snapshot until ctx is done.
func watch[T any](ctx context.Context, a *app.App, s livequery.Schema[T], w io.Writer, render func(livequery.Snapshot[T]) error) error {
	for snap := range livequery.Follow(ctx, a.Sessions(ctx), s, a.QueryOptions()) {
		switch {
		case snap.Loading && errors.Is(snap.Err, errs.ErrNotReady):
			fmt.Fprintln(w, "Waiting for sign-in...")
			continue
		case snap.Loading:
			fmt.Fprintln(w, "Loading...")
			continue
		case snap.Err != nil:
			fmt.Fprintf(w, "update failed: %v (showing last snapshot)\n", snap.Err)
		}
		if err := render(snap); err != nil {
			return err
		}
	}
	return nil
}

func newFeedCommand(opts *rootOptions) *cobra.Command {
	var asJSON, follow bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the home feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, sess, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			show := func(ms []model.Memory) error {
				if asJSON {
					return printJSON(out, ms)
				}
				renderFeed(out, ms)
				return nil
			}
			if follow {
				return watch(ctx, a, livequery.Memories, out, func(snap livequery.Snapshot[model.Memory]) error {
					return show(snap.Records)
				})
			}

			ms, err := firstSnapshot(ctx, a, sess, livequery.Memories, opts.Timeout)
			if err != nil {
				return err
			}
			return show(ms)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep running and print every update")
	return cmd
}

func newMemoryCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "memory <id>",
		Short: "Show one memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, sess, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ms, err := firstSnapshot(ctx, a, sess, livequery.Memories, opts.Timeout)
			if err != nil {
				return err
			}
			for _, m := range ms {
				if m.ID != args[0] {
					continue
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), m)
				}
				renderMemory(cmd.OutOrStdout(), m)
				return nil
			}
			return fmt.Errorf("memory %s: %w", args[0], errs.ErrNotFound)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}
