package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/forever-vivid/internal/livequery"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/mutation"
)

func newAddMemoryCommand(opts *rootOptions) *cobra.Command {
	var d mutation.MemoryDraft

	cmd := &cobra.Command{
		Use:   "add-memory",
		Short: "Upload a new memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, sess, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if sess.Ready() {
				if ms, err := firstSnapshot(ctx, a, sess, livequery.Memories, opts.Timeout); err == nil {
					d.Ordinal = len(ms) + 1
				}
			}
			rc, err := a.Submitter(sess).AddMemory(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added memory %s\n", rc.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&d.Description, "description", "d", "", "description (default: upload time)")
	cmd.Flags().StringSliceVar(&d.Tags, "tag", nil, "tag, repeatable (default: New, Draft)")
	cmd.Flags().BoolVar(&d.HasMusic, "music", false, "the memory has music")
	return cmd
}

func newNewProjectCommand(opts *rootOptions) *cobra.Command {
	var (
		kind string
		d    mutation.ProjectDraft
	)

	cmd := &cobra.Command{
		Use:   "new-project",
		Short: "Start a new book, film or gift project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := model.ParseProjectType(kind)
			if err != nil {
				return err
			}
			d.Type = t

			ctx := cmd.Context()
			a, sess, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rc, err := a.Submitter(sess).StartProject(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started project %s (tab %s)\n", rc.ID, tabName(t))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "", "book, film or gift")
	cmd.Flags().StringVar(&d.Title, "title", "", "title (default: New <Type> project (<date>))")
	cmd.Flags().StringSliceVar(&d.MemoryIDs, "memory", nil, "memory id to include, repeatable")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
