package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/robby/homestock/internal/auth"
	"github.com/robby/homestock/internal/config"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
	"github.com/robby/homestock/internal/remote/gql"
	"github.com/robby/homestock/internal/remote/local"
	"github.com/robby/homestock/internal/remote/realtime"
)

// defaultHTTPTimeout bounds requests when remote.timeout is unset.
const defaultHTTPTimeout = 30 * time.Second

// openBackend returns the table named by cfg.Backend and a function that
// releases it.
func openBackend(cfg *config.Config) (remote.Table, func(), error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		table, err := openSupabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		return table, func() {}, nil

	default:
		table, err := local.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.SQLitePath, err)
		}
		logging.Logger.Debug("opened sqlite table", "path", cfg.SQLitePath)
		return table, func() {
			if err := table.Close(); err != nil {
				logging.Logger.Error("failed to close sqlite table", "error", err)
			}
		}, nil
	}
}

func openSupabase(cfg *config.Config) (*gql.Client, error) {
	apiKey, err := auth.GetToken(
		auth.StaticProvider{Token: cfg.Supabase.APIKey},
		auth.CommandProvider{Command: cfg.Supabase.APIKeyCommand},
		auth.EnvProvider{},
	)
	if err != nil {
		return nil, err
	}

	var feedOpts []realtime.Option
	if cfg.Supabase.AccessToken != "" {
		feedOpts = append(feedOpts, realtime.WithAccessToken(cfg.Supabase.AccessToken))
	}
	feed, err := realtime.New(cfg.Supabase.URL, apiKey, feedOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create change feed: %w", err)
	}

	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	opts := []gql.Option{
		gql.WithFeed(feed),
		gql.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Supabase.AccessToken != "" {
		opts = append(opts, gql.WithAccessToken(cfg.Supabase.AccessToken))
	}

	logging.Logger.Debug("using supabase", "url", cfg.Supabase.URL)
	return gql.New(cfg.Supabase.URL, apiKey, opts...), nil
}
