package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/forever-vivid/internal/app"
	"github.com/and161185/forever-vivid/internal/config"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/logging"
	"github.com/and161185/forever-vivid/internal/session"
)

// rootOptions holds global flags and what PersistentPreRunE derives from them.
type rootOptions struct {
	Verbose     bool
	AppID       string
	StoreConfig string
	AuthToken   string
	SessionFile string
	Timeout     time.Duration

	cfg *config.Client
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vivid",
		Short:         "Forever Vivid memory boutique client",
		Long:          "Browse your memories and projects and add new ones. Sign-in is automatic.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	f := cmd.PersistentFlags()
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	f.StringVar(&opts.AppID, "app-id", "", "application namespace (VIVID_APP_ID)")
	f.StringVar(&opts.StoreConfig, "store-config", "", "store configuration, JSON or YAML (VIVID_STORE_CONFIG)")
	f.StringVar(&opts.AuthToken, "auth-token", "", "pre-issued sign-in token (VIVID_AUTH_TOKEN)")
	f.StringVar(&opts.SessionFile, "session-file", "", "where the session is kept (VIVID_SESSION_FILE)")
	f.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "how long to wait for sign-in and data")

	cmd.AddCommand(newWhoamiCommand(opts))
	cmd.AddCommand(newFeedCommand(opts))
	cmd.AddCommand(newMemoryCommand(opts))
	cmd.AddCommand(newProjectsCommand(opts))
	cmd.AddCommand(newAddMemoryCommand(opts))
	cmd.AddCommand(newNewProjectCommand(opts))
	cmd.AddCommand(newSignOutCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// load reads the environment and lets explicitly set flags win.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("app-id") {
		cfg.AppID = o.AppID
	}
	if f.Changed("store-config") {
		cfg.StoreConfig = o.StoreConfig
	}
	if f.Changed("auth-token") {
		cfg.AuthToken = o.AuthToken
	}
	if f.Changed("session-file") {
		cfg.SessionFile = o.SessionFile
	}
	if f.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}
	if cfg.AppID == "" {
		return fmt.Errorf("empty app id")
	}
	o.cfg = cfg

	log, err := logging.NewCLI(cfg.Verbose)
	if err != nil {
		return err
	}
	o.log = log
	return nil
}

// open starts the client and waits until sign-in has settled.
func (o *rootOptions) open(ctx context.Context) (*app.App, session.Session, error) {
	a, err := app.Open(o.cfg, o.log)
	if err != nil {
		return nil, session.Session{}, err
	}
	a.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	sess, err := a.AwaitSession(waitCtx)
	if err != nil {
		_ = a.Close()
		return nil, session.Session{}, fmt.Errorf("waiting for sign-in: %w", err)
	}
	return a, sess, nil
}

// notReady explains why a session cannot read or write.
func notReady(sess session.Session) error {
	if sess.Store == nil {
		return fmt.Errorf("%w: persistence unavailable (no store configuration)", errs.ErrNotReady)
	}
	return fmt.Errorf("%w: not signed in", errs.ErrNotReady)
}
