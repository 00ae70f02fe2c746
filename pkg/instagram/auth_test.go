package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"igpublisher/pkg/logger"
	"igpublisher/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServerClient spins up a test server and a client pointed at it.
func newServerClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL}, logger.NewNop())
	return client, server
}

// landingHandler serves the landing page with a csrftoken cookie, as the
// login flow's priming step expects.
func landingHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-test"})
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginSuccess(t *testing.T) {
	var loginReq struct {
		csrfHeader  string
		encPassword string
		username    string
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", landingHandler)
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		loginReq.csrfHeader = r.Header.Get("X-CSRFToken")
		loginReq.encPassword = r.PostFormValue("enc_password")
		loginReq.username = r.PostFormValue("username")

		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-abc"})
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"authenticated": true,
			"userId":        "314159",
		})
	})

	client, _ := newServerClient(t, mux)
	res, err := client.Login(context.Background(), "alice", "hunter2", nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.AuthState)

	assert.Equal(t, "alice", loginReq.username)
	assert.Equal(t, "csrf-test", loginReq.csrfHeader)
	assert.True(t, strings.HasPrefix(loginReq.encPassword, "#PWD_INSTAGRAM_BROWSER:0:"))
	assert.True(t, strings.HasSuffix(loginReq.encPassword, ":hunter2"))

	var state authState
	require.NoError(t, json.Unmarshal(res.AuthState, &state))
	assert.Equal(t, "314159", state.UserID)
	assert.Equal(t, "sess-abc", state.Cookies["sessionid"])
	assert.Equal(t, "csrf-test", state.CSRFToken)
}

func TestLoginAdoptsDeviceUserAgent(t *testing.T) {
	var seenUA string

	mux := http.NewServeMux()
	mux.HandleFunc("/", landingHandler)
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		seenUA = r.Header.Get("User-Agent")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"authenticated": true,
		})
	})

	client, _ := newServerClient(t, mux)
	device := json.RawMessage(`{"user_agent":"TestDevice/1.0"}`)
	_, err := client.Login(context.Background(), "alice", "hunter2", device)
	require.NoError(t, err)
	assert.Equal(t, "TestDevice/1.0", seenUA)
}

func TestLoginBadPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", landingHandler)
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"authenticated": false,
		})
	})

	client, _ := newServerClient(t, mux)
	_, err := client.Login(context.Background(), "alice", "wrong", nil)

	var igErr *Error
	require.ErrorAs(t, err, &igErr)
	assert.Equal(t, ErrorTypeAuth, igErr.Type)
	assert.False(t, igErr.Retryable())
	// The session layer reads this as a definitive credential rejection.
	assert.Equal(t, session.KindBadCredentials, session.Classify(err))
}

func TestLoginTwoFactorRequired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", landingHandler)
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":              "fail",
			"error_type":          "two_factor_required",
			"two_factor_required": true,
			"two_factor_info": map[string]interface{}{
				"username":              "alice",
				"two_factor_identifier": "tf-token-1",
				"sms_two_factor_on":     true,
				"totp_two_factor_on":    true,
			},
		})
	})

	client, _ := newServerClient(t, mux)
	_, err := client.Login(context.Background(), "alice", "hunter2", nil)

	var igErr *Error
	require.ErrorAs(t, err, &igErr)
	assert.Equal(t, ErrorTypeChallenge, igErr.Type)
	assert.Equal(t, "tf-token-1", igErr.ChallengeToken())

	methods, preferred := igErr.ChallengeMethods()
	assert.Equal(t, []session.DeliveryMethod{session.DeliveryAuthenticator, session.DeliverySMS}, methods)
	assert.Equal(t, session.DeliveryAuthenticator, preferred)

	assert.Equal(t, session.KindTwoFactor, session.Classify(err))
}

func TestLoginCheckpointRequired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", landingHandler)
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":     "fail",
			"error_type": "checkpoint_required",
			"challenge": map[string]interface{}{
				"api_path": "/challenge/12345/abcdef/",
			},
		})
	})

	client, _ := newServerClient(t, mux)
	_, err := client.Login(context.Background(), "alice", "hunter2", nil)

	var igErr *Error
	require.ErrorAs(t, err, &igErr)
	assert.Equal(t, ErrorTypeChallenge, igErr.Type)
	assert.Equal(t, "/challenge/12345/abcdef/", igErr.ChallengeToken())
	assert.Equal(t, session.KindCheckpoint, session.Classify(err))
}

func TestLoginFailsWithoutCSRFCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	client, _ := newServerClient(t, mux)
	_, err := client.Login(context.Background(), "alice", "hunter2", nil)

	var igErr *Error
	require.ErrorAs(t, err, &igErr)
	assert.Contains(t, igErr.Message, "csrftoken")
}

func TestSubmitTwoFactorCodeSealsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", landingHandler)
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":              "fail",
			"error_type":          "two_factor_required",
			"two_factor_required": true,
			"two_factor_info": map[string]interface{}{
				"two_factor_identifier": "tf-token-1",
			},
		})
	})
	mux.HandleFunc(TwoFactorEndpoint, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tf-token-1", r.PostFormValue("identifier"))
		assert.Equal(t, "123456", r.PostFormValue("verificationCode"))

		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-2fa"})
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"logged_in_user": map[string]interface{}{"pk": 271828, "username": "alice"},
		})
	})

	client, _ := newServerClient(t, mux)
	_, err := client.Login(context.Background(), "alice", "hunter2", nil)
	require.Error(t, err)

	res, err := client.SubmitTwoFactorCode(context.Background(), "alice", "tf-token-1", "123456")
	require.NoError(t, err)
	require.NotEmpty(t, res.AuthState)

	var state authState
	require.NoError(t, json.Unmarshal(res.AuthState, &state))
	assert.Equal(t, "271828", state.UserID)
	assert.Equal(t, "sess-2fa", state.Cookies["sessionid"])
	// Cookies from the priming step survive into the sealed state.
	assert.Equal(t, "csrf-test", state.Cookies["csrftoken"])
}

func TestSubmitTwoFactorCodeAcceptedWithoutSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(TwoFactorEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	client, _ := newServerClient(t, mux)
	res, err := client.SubmitTwoFactorCode(context.Background(), "alice", "tf-token-1", "123456")
	require.NoError(t, err)
	assert.Empty(t, res.AuthState)
}

func TestSubmitTwoFactorCodeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(TwoFactorEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "fail",
			"message": "Please check the code we sent you and try again.",
		})
	})

	client, _ := newServerClient(t, mux)
	_, err := client.SubmitTwoFactorCode(context.Background(), "alice", "tf-token-1", "000000")
	require.Error(t, err)
	assert.Equal(t, session.KindCodeRejected, session.Classify(err))
}

func TestSelectChallengeMethod(t *testing.T) {
	var choice string
	mux := http.NewServeMux()
	mux.HandleFunc("/challenge/12345/abcdef/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		choice = r.PostFormValue("choice")
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	client, _ := newServerClient(t, mux)
	err := client.SelectChallengeMethod(context.Background(), "/challenge/12345/abcdef/", session.DeliverySMS)
	require.NoError(t, err)
	assert.Equal(t, "0", choice)

	err = client.SelectChallengeMethod(context.Background(), "/challenge/12345/abcdef/", session.DeliveryEmail)
	require.NoError(t, err)
	assert.Equal(t, "1", choice)
}

func TestSubmitChallengeCodeSealsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/challenge/12345/abcdef/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "654321", r.PostFormValue("security_code"))

		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-chal"})
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-chal"})
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"logged_in_user": map[string]interface{}{"pk": 161803, "username": "alice"},
		})
	})

	client, _ := newServerClient(t, mux)
	res, err := client.SubmitChallengeCode(context.Background(), "/challenge/12345/abcdef/", "654321")
	require.NoError(t, err)

	var state authState
	require.NoError(t, json.Unmarshal(res.AuthState, &state))
	assert.Equal(t, "161803", state.UserID)
	assert.Equal(t, "sess-chal", state.Cookies["sessionid"])
}

func TestProbeIdentity(t *testing.T) {
	blob := json.RawMessage(`{"cookies":{"csrftoken":"tok","sessionid":"sid"},"user_id":"1","csrf_token":"tok"}`)

	t.Run("valid session", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(CurrentUserEndpoint, func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("Cookie"), "sessionid=sid")
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status": "ok",
				"user":   map[string]interface{}{"pk": 1, "username": "alice"},
			})
		})

		client, _ := newServerClient(t, mux)
		assert.NoError(t, client.ProbeIdentity(context.Background(), blob))
	})

	t.Run("stale session", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(CurrentUserEndpoint, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"status":  "fail",
				"message": "login_required",
			})
		})

		client, _ := newServerClient(t, mux)
		err := client.ProbeIdentity(context.Background(), blob)
		var igErr *Error
		require.ErrorAs(t, err, &igErr)
		assert.Equal(t, ErrorTypeAuth, igErr.Type)
	})

	t.Run("ok status without user", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(CurrentUserEndpoint, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
		})

		client, _ := newServerClient(t, mux)
		assert.Error(t, client.ProbeIdentity(context.Background(), blob))
	})

	t.Run("undecodable blob", func(t *testing.T) {
		client, _ := newServerClient(t, http.NewServeMux())
		assert.Error(t, client.ProbeIdentity(context.Background(), json.RawMessage(`{"cookies":{}}`)))
	})
}

func TestErrorRetryable(t *testing.T) {
	assert.True(t, (&Error{Type: ErrorTypeNetwork}).Retryable())
	assert.True(t, (&Error{Type: ErrorTypeRateLimit}).Retryable())
	assert.True(t, (&Error{Type: ErrorTypeServerError}).Retryable())
	assert.False(t, (&Error{Type: ErrorTypeAuth}).Retryable())
	assert.False(t, (&Error{Type: ErrorTypeChallenge}).Retryable())
	assert.False(t, (&Error{Type: ErrorTypeParsing}).Retryable())
}

func TestIsValidUsername(t *testing.T) {
	assert.True(t, IsValidUsername("alice"))
	assert.True(t, IsValidUsername("alice.b_2"))
	assert.False(t, IsValidUsername(""))
	assert.False(t, IsValidUsername("has space"))
	assert.False(t, IsValidUsername(strings.Repeat("a", 31)))
}
