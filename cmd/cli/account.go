package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/forever-vivid/internal/app"
)

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, sess, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			switch {
			case sess.Store == nil:
				fmt.Fprintln(out, "persistence unavailable")
			case sess.Identity == nil:
				fmt.Fprintln(out, "signed out")
			default:
				kind := "account"
				if sess.Identity.Anonymous {
					kind = "anonymous"
				}
				fmt.Fprintf(out, "%s (%s)\n", sess.Identity.UID, kind)
			}
			return nil
		},
	}
}

func newSignOutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// no Start: signing out must not trigger a fresh anonymous sign-in
			a, err := app.Open(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vivid %s (%s)\n", version, buildDate)
		},
	}
}
