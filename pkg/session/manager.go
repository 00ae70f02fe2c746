package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"igpublisher/pkg/device"
	"igpublisher/pkg/logger"
)

// State names used in surfaced errors so an operator can tell where an
// acquisition died.
const (
	stateProbing          = "probing"
	stateAuthenticating   = "authenticating"
	stateChallengePending = "challenge_pending"
)

// codePromptBudget is how many interactive prompts a single challenge gets:
// the initial prompt plus exactly one re-prompt after a rejected code.
const codePromptBudget = 2

// maxChallengeRounds bounds how many times one challenge kind may be
// resolved within a single acquisition. A resolved challenge may re-arise
// once on the follow-up login; after that the service is looping and
// prompting the operator again cannot help.
const maxChallengeRounds = 2

// Config holds the tunables of the acquisition state machine.
type Config struct {
	// MaxLoginAttempts bounds consecutive non-challenge login failures.
	MaxLoginAttempts int
	// RetryDelay is the fixed pause between login attempts.
	RetryDelay time.Duration
}

// Handle is an in-memory reference to a validated, ready-to-use session. It
// is guaranteed to have passed a freshness probe (or to have just been
// minted by a successful login) at the moment Acquire returned it.
type Handle struct {
	Username  string
	Device    json.RawMessage
	AuthState json.RawMessage
}

// Manager owns the session lifecycle for accounts: load-or-create, validity
// probe, challenge resolution, persistence. One Manager serves any number of
// usernames; acquisitions are sequential per invocation.
type Manager struct {
	client AuthClient
	creds  CredentialProvider
	store  *Store
	cfg    Config
	log    logger.Logger

	// sleep and deviceFor are swappable in tests
	sleep     func(ctx context.Context, d time.Duration) error
	deviceFor func(username string) json.RawMessage
}

// NewManager creates a session manager. Zero config fields get defaults:
// 3 attempts, 5 second retry delay.
func NewManager(client AuthClient, creds CredentialProvider, store *Store, cfg Config) *Manager {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Manager{
		client:    client,
		creds:     creds,
		store:     store,
		cfg:       cfg,
		log:       logger.GetLogger(),
		sleep:     sleepCtx,
		deviceFor: device.Fingerprint,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire produces a usable authenticated handle for username, hiding
// whether that took a cached session, a fresh login, or a challenge dance.
//
// A persisted session is probed once; any probe failure demotes to a fresh
// login and is never retried. Corrupt session files are treated as missing.
func (m *Manager) Acquire(ctx context.Context, username string) (*Handle, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	log := m.log.WithField("username", username)

	// Cheap path: a persisted session that still probes fresh.
	sess, err := m.store.Load(username)
	if err != nil {
		// Corrupt files are a recoverable condition; log and fall through.
		log.WithError(err).Warn("persisted session unreadable, falling through to fresh login")
		sess = nil
	}
	if sess != nil {
		if probeErr := m.client.ProbeIdentity(ctx, sess.AuthState); probeErr == nil {
			log.Debug("persisted session passed freshness probe")
			return &Handle{
				Username:  username,
				Device:    sess.Device,
				AuthState: sess.AuthState,
			}, nil
		} else {
			log.WithError(probeErr).Info("persisted session failed probe, re-authenticating")
		}
	}

	return m.authenticate(ctx, username)
}

// authenticate runs the AUTHENTICATING / CHALLENGE_PENDING loop for a fresh
// login. Challenge resolutions do not consume the attempt budget; only
// non-challenge failures do.
func (m *Manager) authenticate(ctx context.Context, username string) (*Handle, error) {
	log := m.log.WithField("username", username)

	password, err := m.creds.Password(username)
	if err != nil {
		return nil, &AuthenticationError{
			Username:   username,
			State:      stateAuthenticating,
			Diagnostic: "no password available",
			Err:        err,
		}
	}

	dev := m.deviceFor(username)

	failures := 0
	challengeRounds := map[ChallengeKind]int{}
	var lastErr error

	for {
		res, loginErr := m.client.Login(ctx, username, password, dev)
		if loginErr == nil {
			return m.complete(username, dev, res)
		}

		switch kind := Classify(loginErr); kind {
		case KindTwoFactor, KindCheckpoint:
			chalKind := ChallengeTwoFactor
			if kind == KindCheckpoint {
				chalKind = ChallengeCheckpoint
				log.Info("checkpoint challenge raised")
			} else {
				log.Info("two-factor verification required")
			}

			challengeRounds[chalKind]++
			if challengeRounds[chalKind] > maxChallengeRounds {
				return nil, &AuthenticationError{
					Username:   username,
					State:      stateChallengePending,
					Diagnostic: "challenge raised again after an accepted code",
					Err:        loginErr,
				}
			}

			res, chalErr := m.resolveChallenge(ctx, username, chalKind, loginErr)
			if chalErr != nil {
				return nil, chalErr
			}
			if res != nil && len(res.AuthState) > 0 {
				// The service completed the session directly.
				return m.complete(username, dev, res)
			}
			// Code accepted but no session returned: re-attempt the login.
			continue

		case KindBadCredentials:
			return nil, &AuthenticationError{
				Username:   username,
				State:      stateAuthenticating,
				Diagnostic: loginErr.Error(),
				Err:        loginErr,
			}

		default:
			failures++
			lastErr = loginErr
			log.WithError(loginErr).WarnWithFields("login attempt failed", map[string]interface{}{
				"attempt":      failures,
				"max_attempts": m.cfg.MaxLoginAttempts,
			})
			if failures >= m.cfg.MaxLoginAttempts {
				return nil, &ExhaustedRetriesError{
					Username: username,
					Attempts: failures,
					Err:      lastErr,
				}
			}
			if err := m.sleep(ctx, m.cfg.RetryDelay); err != nil {
				return nil, fmt.Errorf("login retry aborted: %w", err)
			}
		}
	}
}

// resolveChallenge drives one raised challenge to acceptance or failure. The
// returned result may carry a completed session; a nil-state result means
// the code was accepted and the caller should re-attempt the login.
func (m *Manager) resolveChallenge(ctx context.Context, username string, kind ChallengeKind, cause error) (*LoginResult, error) {
	chal := challengeFrom(kind, cause)

	if kind == ChallengeCheckpoint {
		method := m.pickDeliveryMethod(username, chal)
		if err := m.client.SelectChallengeMethod(ctx, chal.token, method); err != nil {
			return nil, &AuthenticationError{
				Username:   username,
				State:      stateChallengePending,
				Diagnostic: err.Error(),
				Err:        err,
			}
		}
		m.log.InfoWithFields("verification code dispatched", map[string]interface{}{
			"username": username,
			"method":   string(method),
		})
	}

	prompts := 0
	var lastErr error
	for prompts < codePromptBudget {
		code, err := m.creds.VerificationCode(codePrompt(username, kind))
		prompts++
		if err != nil {
			return nil, &ChallengeUnresolvedError{
				Username: username,
				Kind:     kind,
				Prompts:  prompts,
				Err:      err,
			}
		}

		var res *LoginResult
		switch kind {
		case ChallengeTwoFactor:
			res, err = m.client.SubmitTwoFactorCode(ctx, username, chal.token, code)
		default:
			res, err = m.client.SubmitChallengeCode(ctx, chal.token, code)
		}
		if err == nil {
			return res, nil
		}

		if Classify(err) == KindCodeRejected {
			lastErr = err
			m.log.WarnWithFields("verification code rejected", map[string]interface{}{
				"username": username,
				"prompts":  prompts,
			})
			continue
		}

		return nil, &AuthenticationError{
			Username:   username,
			State:      stateChallengePending,
			Diagnostic: err.Error(),
			Err:        err,
		}
	}

	return nil, &ChallengeUnresolvedError{
		Username: username,
		Kind:     kind,
		Prompts:  prompts,
		Err:      lastErr,
	}
}

// pickDeliveryMethod prefers the service-chosen default, falls back to the
// only offered method, and prompts the operator otherwise.
func (m *Manager) pickDeliveryMethod(username string, chal *challengeContext) DeliveryMethod {
	if chal.preferred != "" {
		return chal.preferred
	}
	if len(chal.methods) == 1 {
		return chal.methods[0]
	}
	if len(chal.methods) > 1 {
		options := make([]string, len(chal.methods))
		for i, method := range chal.methods {
			options[i] = string(method)
		}
		prompt := fmt.Sprintf("Delivery method for %s (%s)", username, strings.Join(options, "/"))
		answer, err := m.creds.VerificationCode(prompt)
		if err == nil {
			answer = strings.ToLower(strings.TrimSpace(answer))
			for _, method := range chal.methods {
				if string(method) == answer {
					return method
				}
			}
		}
		return chal.methods[0]
	}
	return DeliveryEmail
}

// complete persists the fresh session state and returns the handle.
func (m *Manager) complete(username string, dev json.RawMessage, res *LoginResult) (*Handle, error) {
	sess := &Session{
		Username:  username,
		Device:    dev,
		AuthState: res.AuthState,
	}
	if err := m.store.Save(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session for %q: %w", username, err)
	}

	m.log.InfoWithFields("session established", map[string]interface{}{
		"username": username,
		"path":     m.store.Path(username),
	})

	return &Handle{
		Username:  username,
		Device:    dev,
		AuthState: res.AuthState,
	}, nil
}

// challengeFrom extracts the challenge metadata the client attached to the
// triggering error.
func challengeFrom(kind ChallengeKind, cause error) *challengeContext {
	chal := &challengeContext{kind: kind}
	var carrier challengeCarrier
	if errors.As(cause, &carrier) {
		chal.token = carrier.ChallengeToken()
		chal.methods, chal.preferred = carrier.ChallengeMethods()
	}
	return chal
}

func codePrompt(username string, kind ChallengeKind) string {
	if kind == ChallengeTwoFactor {
		return fmt.Sprintf("Enter the two-factor code for %s", username)
	}
	return fmt.Sprintf("Enter the verification code sent for %s", username)
}
