package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Kavirubc/cofound/internal/config"
	"github.com/Kavirubc/cofound/internal/github"
	"github.com/Kavirubc/cofound/internal/outbox"
	"github.com/Kavirubc/cofound/internal/output"
	"github.com/Kavirubc/cofound/internal/recommend"
	"github.com/Kavirubc/cofound/internal/session"
)

// app bundles what every command needs
type app struct {
	cfg      *config.Config
	printer  *output.Printer
	sessions *session.Store
	logger   *slog.Logger
}

// loadApp reads and validates config. A missing config file is fine:
// defaults apply.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadOrDefault(config.FindConfigPath(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	printer := output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(noColor))

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			printer.Error("config error: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration")
	}

	return &app{
		cfg:      cfg,
		printer:  printer,
		sessions: session.NewStore(cfg.Session.Path),
		logger:   slog.Default(),
	}, nil
}

// requireSession returns the signed-in session or a hint to log in
func (a *app) requireSession() (*session.Session, error) {
	sess, err := a.sessions.Load()
	if errors.Is(err, session.ErrNoSession) {
		return nil, fmt.Errorf("not logged in: run 'cofound login <user-id>' or 'cofound profile create'")
	}
	return sess, err
}

// client creates a backend client authenticated as sess, which may be nil
func (a *app) client(sess *session.Session) *recommend.Client {
	return recommend.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout(),
		recommend.WithRateLimit(a.cfg.RateLimits.APIRPS),
		recommend.WithAccessToken(sess.AccessToken()),
		recommend.WithLogger(a.logger))
}

// githubClient creates a GitHub client from config
func (a *app) githubClient() (*github.Client, error) {
	return github.NewClient(github.Options{
		Host:      a.cfg.GitHub.Host,
		AuthToken: a.cfg.GitHub.Token,
		Timeout:   a.cfg.API.Timeout(),
	})
}

// openOutbox returns nil when the outbox is disabled. The returned close
// function is always safe to call.
func (a *app) openOutbox(ctx context.Context) (*outbox.Outbox, func(), error) {
	noop := func() {}
	oc := a.cfg.Outbox
	if !oc.Enabled {
		return nil, noop, nil
	}

	opts := outbox.Options{
		MaxAttempts: oc.MaxAttempts,
		BaseBackoff: oc.BaseBackoff(),
		Logger:      a.logger,
	}

	switch oc.Backend {
	case "redis":
		store, err := outbox.NewRedisStoreWithURL(oc.RedisURL, oc.KeyPrefix)
		if err != nil {
			return nil, noop, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, noop, fmt.Errorf("failed to connect to outbox redis: %w", err)
		}
		return outbox.New(store, opts), func() { _ = store.Close() }, nil
	default:
		return outbox.New(outbox.NewMemoryStore(), opts), noop, nil
	}
}
