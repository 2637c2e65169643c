package main

import (
	"github.com/spf13/cobra"

	"github.com/and161185/forever-vivid/internal/livequery"
	"github.com/and161185/forever-vivid/internal/model"
)

func newProjectsCommand(opts *rootOptions) *cobra.Command {
	var (
		tab    string
		asJSON bool
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Show projects grouped into books, films and gifts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, err := model.ParseProjectType(tab)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, sess, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			show := func(ps []model.Project) error {
				b := model.Categorize(ps)
				if asJSON {
					return printJSON(out, b)
				}
				renderProjects(out, b, active)
				return nil
			}
			if follow {
				return watch(ctx, a, livequery.Projects, out, func(snap livequery.Snapshot[model.Project]) error {
					return show(snap.Records)
				})
			}

			ps, err := firstSnapshot(ctx, a, sess, livequery.Projects, opts.Timeout)
			if err != nil {
				return err
			}
			return show(ps)
		},
	}
	cmd.Flags().StringVarP(&tab, "type", "t", string(model.ProjectBook), "active tab: book, film or gift")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print all buckets as JSON")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep running and print every update")
	return cmd
}
