// Package publisher orchestrates one publish run per account: acquire a
// session, pick the oldest unpublished video, push it out and record it.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"igpublisher/pkg/instagram"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/media"
	"igpublisher/pkg/ratelimit"
	"igpublisher/pkg/retry"
	"igpublisher/pkg/session"
	"igpublisher/pkg/state"
)

// timeNow is swappable in tests
var timeNow = time.Now

// sessionAcquirer yields ready-to-use authenticated sessions
type sessionAcquirer interface {
	Acquire(ctx context.Context, username string) (*session.Handle, error)
}

// videoPublisher pushes one video out under an authenticated session
type videoPublisher interface {
	PublishVideo(ctx context.Context, authState json.RawMessage, up instagram.Upload) (*instagram.PublishResult, error)
}

// Outcome summarizes one account's run
type Outcome struct {
	Username string
	Key      string
	MediaID  string
	Code     string
	// Skipped is set when every video was already published. That is a
	// successful run, not a failure.
	Skipped bool
	Err     error
}

// Config holds orchestrator options
type Config struct {
	// Prefix narrows the media listing
	Prefix string
	// Extensions are the recognized video file extensions; empty means the
	// media package defaults
	Extensions []string
	// Caption is attached to every published video
	Caption string
	// AsReel publishes videos as reels
	AsReel bool
	// DownloadAttempts bounds retries of the media download
	DownloadAttempts int
}

// Orchestrator runs the publish pipeline for one or more accounts
type Orchestrator struct {
	sessions sessionAcquirer
	client   videoPublisher
	source   media.Source
	states   *state.Manager
	limiter  ratelimit.Limiter
	cfg      Config
	log      logger.Logger
}

// New creates an orchestrator. The limiter paces consecutive accounts and
// may be nil for single-account runs.
func New(sessions sessionAcquirer, client videoPublisher, source media.Source, states *state.Manager, limiter ratelimit.Limiter, cfg Config) *Orchestrator {
	if cfg.DownloadAttempts <= 0 {
		cfg.DownloadAttempts = 3
	}
	return &Orchestrator{
		sessions: sessions,
		client:   client,
		source:   source,
		states:   states,
		limiter:  limiter,
		cfg:      cfg,
		log:      logger.GetLogger(),
	}
}

// RunAccount publishes the oldest unpublished video for one account
func (o *Orchestrator) RunAccount(ctx context.Context, username string) (*Outcome, error) {
	log := o.log.WithField("username", username)
	outcome := &Outcome{Username: username}

	handle, err := o.sessions.Acquire(ctx, username)
	o.markAcquired()
	if err != nil {
		return nil, fmt.Errorf("session for %s: %w", username, err)
	}

	st, err := o.states.Load(username)
	if err != nil {
		return nil, fmt.Errorf("upload state for %s: %w", username, err)
	}

	objects, err := media.ListAll(ctx, o.source, o.cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}

	candidate, ok := media.NextCandidate(objects, o.cfg.Extensions, st.IsUploaded)
	if !ok {
		log.Info("no unpublished videos, nothing to do")
		outcome.Skipped = true
		return outcome, nil
	}
	outcome.Key = candidate.Key

	log.InfoWithFields("publishing video", map[string]interface{}{
		"key":  candidate.Key,
		"size": candidate.Size,
	})

	video, err := retry.DoWithResult(func() ([]byte, error) {
		return o.source.Download(ctx, candidate.Key)
	}, &retry.Config{
		MaxAttempts: o.cfg.DownloadAttempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      o.log,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", candidate.Key, err)
	}

	// A sibling image with the video's base name serves as the cover frame.
	// A missing or unfetchable cover never blocks the publish.
	var cover []byte
	if coverObj, ok := media.CoverFor(objects, candidate); ok {
		cover, err = o.source.Download(ctx, coverObj.Key)
		if err != nil {
			log.WithError(err).Warn("cover frame download failed, publishing without it")
			cover = nil
		}
	}

	res, err := o.client.PublishVideo(ctx, handle.AuthState, instagram.Upload{
		VideoBytes: video,
		CoverBytes: cover,
		Caption:    o.cfg.Caption,
		IsReel:     o.cfg.AsReel,
	})
	if err != nil {
		return nil, fmt.Errorf("publishing %s: %w", candidate.Key, err)
	}
	outcome.MediaID = res.MediaID
	outcome.Code = res.Code

	st.Record(state.Upload{
		Key:     candidate.Key,
		At:      timeNow(),
		MediaID: res.MediaID,
		Code:    res.Code,
	})
	if err := o.states.Save(st); err != nil {
		return nil, fmt.Errorf("recording upload of %s: %w", candidate.Key, err)
	}

	log.InfoWithFields("video published", map[string]interface{}{
		"key":      candidate.Key,
		"media_id": res.MediaID,
	})

	return outcome, nil
}

// markAcquired anchors the inter-account gap at the moment session
// acquisition finished. The gap runs from acquisition completion to the
// next account's start, so time spent logging in must not count toward it.
func (o *Orchestrator) markAcquired() {
	if m, ok := o.limiter.(interface{ Mark() }); ok {
		m.Mark()
	}
}

// RunAll runs every account in order, pacing the gap between them. A
// failing account does not stop the rest; the returned error joins all
// per-account failures.
func (o *Orchestrator) RunAll(ctx context.Context, usernames []string) ([]Outcome, error) {
	var outcomes []Outcome
	var errs []error

	for _, username := range usernames {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				errs = append(errs, err)
				break
			}
		}

		outcome, err := o.RunAccount(ctx, username)
		if err != nil {
			o.log.ErrorWithFields("account run failed", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
			outcomes = append(outcomes, Outcome{Username: username, Err: err})
			errs = append(errs, err)
			continue
		}
		outcomes = append(outcomes, *outcome)
	}

	return outcomes, errors.Join(errs...)
}
