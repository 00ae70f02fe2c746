package session

import (
	"context"
	"encoding/json"
)

// ChallengeKind distinguishes the two verification flows the service uses.
type ChallengeKind string

const (
	ChallengeTwoFactor  ChallengeKind = "two_factor"
	ChallengeCheckpoint ChallengeKind = "checkpoint"
)

// DeliveryMethod is how a verification code reaches the operator.
type DeliveryMethod string

const (
	DeliveryEmail         DeliveryMethod = "email"
	DeliverySMS           DeliveryMethod = "sms"
	DeliveryAuthenticator DeliveryMethod = "authenticator"
)

// LoginResult carries the authenticated state returned by the client. The
// blob is owned by the client and never inspected here.
type LoginResult struct {
	AuthState json.RawMessage
}

// AuthClient is the private-API surface the manager drives. All failures may
// be heterogeneous free-text errors; Classify decides what they mean.
type AuthClient interface {
	// Login submits username and password with the given device fingerprint.
	Login(ctx context.Context, username, password string, device json.RawMessage) (*LoginResult, error)

	// ProbeIdentity issues a lightweight "who am I" call with a loaded
	// session. Any error means the session is stale.
	ProbeIdentity(ctx context.Context, authState json.RawMessage) error

	// SubmitTwoFactorCode submits a code bound to the challenge token. A
	// result with a non-empty AuthState means the service completed the
	// session directly; an empty one means the login must be re-attempted.
	SubmitTwoFactorCode(ctx context.Context, username, token, code string) (*LoginResult, error)

	// SelectChallengeMethod requests code dispatch over the given method for
	// a checkpoint challenge.
	SelectChallengeMethod(ctx context.Context, token string, method DeliveryMethod) error

	// SubmitChallengeCode submits a checkpoint code. Result semantics match
	// SubmitTwoFactorCode.
	SubmitChallengeCode(ctx context.Context, token, code string) (*LoginResult, error)
}

// CredentialProvider supplies the password and, on demand, interactively
// supplies verification codes. Code prompts block until input arrives; a code
// is never assumed to be known in advance.
type CredentialProvider interface {
	Password(username string) (string, error)
	VerificationCode(prompt string) (string, error)
}

// challengeCarrier is implemented by client errors that carry challenge
// metadata for the specific challenge instance.
type challengeCarrier interface {
	ChallengeToken() string
	ChallengeMethods() (methods []DeliveryMethod, preferred DeliveryMethod)
}

// challengeContext is the transient, in-memory record of one raised
// challenge. It is never persisted.
type challengeContext struct {
	kind      ChallengeKind
	token     string
	methods   []DeliveryMethod
	preferred DeliveryMethod
}
