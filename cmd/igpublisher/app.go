package main

import (
	"fmt"
	"time"

	"igpublisher/pkg/config"
	"igpublisher/pkg/credentials"
	"igpublisher/pkg/instagram"
	"igpublisher/pkg/media"
	"igpublisher/pkg/publisher"
	"igpublisher/pkg/ratelimit"
	"igpublisher/pkg/session"
	"igpublisher/pkg/state"
)

// app bundles the wired components behind every command
type app struct {
	cfg      *config.Config
	creds    *credentials.Manager
	client   *instagram.Client
	sessions *session.Manager
	orch     *publisher.Orchestrator
}

// newApp wires the full pipeline from the loaded configuration
func newApp(cfg *config.Config) (*app, error) {
	credsManager, err := credentials.NewManager()
	if err != nil {
		return nil, fmt.Errorf("credential manager: %w", err)
	}
	provider := credentials.NewTerminalProvider(credsManager)

	var limiter ratelimit.Limiter
	if cfg.API.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.API.RequestsPerMinute, time.Minute)
	}

	client := instagram.NewClient(instagram.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Limiter:   limiter,
	}, nil)

	sessionStore, err := session.NewStore(cfg.Sessions.Dir)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	sessions := session.NewManager(client, provider, sessionStore, session.Config{
		MaxLoginAttempts: cfg.Login.MaxAttempts,
		RetryDelay:       cfg.Login.RetryDelay,
	})

	states, err := state.NewManager(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("state manager: %w", err)
	}

	source := media.NewDirSource(cfg.Media.Dir, cfg.Media.PageSize)
	accountGap := ratelimit.NewIntervalLimiter(cfg.Login.AccountGap)

	orch := publisher.New(sessions, client, source, states, accountGap, publisher.Config{
		Prefix:     cfg.Media.Prefix,
		Extensions: cfg.Media.Extensions,
		Caption:    cfg.Publish.Caption,
		AsReel:     cfg.Publish.AsReel,
	})

	return &app{
		cfg:      cfg,
		creds:    credsManager,
		client:   client,
		sessions: sessions,
		orch:     orch,
	}, nil
}
