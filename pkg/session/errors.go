package session

import "fmt"

// AuthenticationError indicates the service rejected the credentials outright,
// or an unclassifiable failure occurred during login or challenge resolution.
// It is terminal for the acquisition call.
type AuthenticationError struct {
	Username   string
	State      string
	Diagnostic string
	Err        error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("authentication failed for %q in state %s", e.Username, e.State)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ChallengeUnresolvedError indicates a verification challenge was raised but
// no submitted code was ever accepted. Operator intervention is required.
type ChallengeUnresolvedError struct {
	Username string
	Kind     ChallengeKind
	Prompts  int
	Err      error
}

func (e *ChallengeUnresolvedError) Error() string {
	return fmt.Sprintf("%s challenge for %q unresolved after %d prompt(s)", e.Kind, e.Username, e.Prompts)
}

func (e *ChallengeUnresolvedError) Unwrap() error { return e.Err }

// ExhaustedRetriesError indicates the configured login attempt budget was
// consumed without a successful authentication.
type ExhaustedRetriesError struct {
	Username string
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("login for %q failed after %d attempt(s): %v", e.Username, e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// SessionCorruptError indicates a persisted session file could not be
// decoded. It never escapes Acquire; a corrupt file is treated exactly like a
// missing one and the manager falls through to a fresh login.
type SessionCorruptError struct {
	Username string
	Path     string
	Err      error
}

func (e *SessionCorruptError) Error() string {
	return fmt.Sprintf("session file for %q is corrupt (%s): %v", e.Username, e.Path, e.Err)
}

func (e *SessionCorruptError) Unwrap() error { return e.Err }

// TransientNetworkError indicates a network-level failure outside the
// challenge taxonomy. Probe failures are demoted to a fresh login; publish
// failures surface to the caller of the containing operation.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error during %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }
