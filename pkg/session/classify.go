package session

import (
	"errors"
	"strings"
)

// Kind is the classification of a login failure.
type Kind int

const (
	// KindNone means the failure matched no marker; it is retried up to the
	// attempt budget.
	KindNone Kind = iota
	// KindTwoFactor means a pre-configured second factor is required.
	KindTwoFactor
	// KindCheckpoint means the service raised a checkpoint/challenge.
	KindCheckpoint
	// KindBadCredentials means the password was definitively rejected.
	KindBadCredentials
	// KindCodeRejected means a submitted verification code was rejected.
	KindCodeRejected
)

// responseBodyCarrier is implemented by client errors that carry the raw
// nested response-body message alongside the top-level one.
type responseBodyCarrier interface {
	ResponseBody() string
}

// markers maps case-insensitive substrings of the service's free-text error
// wording to failure kinds. The service owns this wording and changes it
// without notice; when classification breaks, this table is the only thing
// that needs updating.
var markers = []struct {
	substr string
	kind   Kind
}{
	{"two_factor_required", KindTwoFactor},
	{"two-factor", KindTwoFactor},
	{"checkpoint_required", KindCheckpoint},
	{"challenge_required", KindCheckpoint},
	{"bad_password", KindBadCredentials},
	{"invalid credentials", KindBadCredentials},
	{"invalid_code", KindCodeRejected},
	{"check the code", KindCodeRejected},
	{"security code is invalid", KindCodeRejected},
}

// Classify maps a login failure to a Kind by substring matching over the
// concatenation of the error's message and any nested response-body message.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	text := strings.ToLower(err.Error())

	var carrier responseBodyCarrier
	if errors.As(err, &carrier) {
		text += " " + strings.ToLower(carrier.ResponseBody())
	}

	for _, m := range markers {
		if strings.Contains(text, m.substr) {
			return m.kind
		}
	}
	return KindNone
}
