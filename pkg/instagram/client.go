package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igpublisher/pkg/logger"
	"igpublisher/pkg/ratelimit"
	"igpublisher/pkg/session"
)

// ErrorType categorizes Instagram API failures
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeChallenge   ErrorType = "challenge"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an Instagram API error. The service reports failures as
// free-text messages in heterogeneous payloads; Body carries the nested
// response-body message so callers can classify on both.
type Error struct {
	Type    ErrorType
	Message string
	Body    string
	Code    int

	challengeToken   string
	challengeMethods []session.DeliveryMethod
	preferredMethod  session.DeliveryMethod
}

func (e *Error) Error() string {
	return fmt.Sprintf("instagram %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// ResponseBody returns the nested response-body message.
func (e *Error) ResponseBody() string { return e.Body }

// ChallengeToken returns the opaque token identifying the raised challenge.
func (e *Error) ChallengeToken() string { return e.challengeToken }

// ChallengeMethods returns the offered code delivery methods and the
// service-chosen default.
func (e *Error) ChallengeMethods() ([]session.DeliveryMethod, session.DeliveryMethod) {
	return e.challengeMethods, e.preferredMethod
}

// Retryable reports whether repeating the same request can succeed.
func (e *Error) Retryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// Config holds client construction options
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Limiter, when set, paces every outgoing request
	Limiter ratelimit.Limiter
}

// Client talks to the Instagram private web API. Login, two-factor and
// checkpoint calls belong to one sequential flow per account; the client
// keeps the in-flight flow's cookies between those calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    ratelimit.Limiter
	logger     logger.Logger

	// flow state for the login currently in progress. Execution is strictly
	// sequential per run, so one slot suffices.
	flow *flowState
}

// flowState carries the cookies and ids accumulated across the steps of one
// login attempt.
type flowState struct {
	username  string
	cookies   map[string]string
	twoFactor string // two-factor identifier from the login response
	challenge string // challenge api_path from the login response
	userID    string
}

// NewClient creates an Instagram API client
func NewClient(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		limiter:    cfg.Limiter,
		logger:     log,
	}
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// authState is the opaque blob the session layer persists for us. Its shape
// is owned here and may change independently of the session file format.
type authState struct {
	Cookies   map[string]string `json:"cookies"`
	UserID    string            `json:"user_id"`
	CSRFToken string            `json:"csrf_token"`
	UserAgent string            `json:"user_agent,omitempty"`
}

func decodeAuthState(blob json.RawMessage) (*authState, error) {
	var state authState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to decode auth state: %v", err),
		}
	}
	if len(state.Cookies) == 0 {
		return nil, &Error{
			Type:    ErrorTypeAuth,
			Message: "auth state has no cookies",
		}
	}
	return &state, nil
}

func (s *authState) encode() (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to encode auth state: %v", err),
		}
	}
	return data, nil
}

func cookieHeader(cookies map[string]string) string {
	pairs := make([]string, 0, len(cookies))
	for name, value := range cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

// doRequest performs one HTTP request with standard headers, pacing and
// request logging. Cookies are collected back into the provided map.
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values, cookies map[string]string) (*http.Response, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, &Error{Type: ErrorTypeNetwork, Message: fmt.Sprintf("request pacing aborted: %v", err)}
		}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-IG-App-ID", webAppID)
	req.Header.Set("Referer", c.baseURL+"/")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if len(cookies) > 0 {
		req.Header.Set("Cookie", cookieHeader(cookies))
		if csrf := cookies["csrftoken"]; csrf != "" {
			req.Header.Set("X-CSRFToken", csrf)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"path":     path,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	// Fold response cookies back into the flow
	if cookies != nil {
		for _, ck := range resp.Cookies() {
			if ck.Value != "" {
				cookies[ck.Name] = ck.Value
			}
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return resp, raw, nil
}

// apiError builds the typed error for a non-ok API response, attaching
// challenge metadata when the payload carries it.
func (c *Client) apiError(resp *http.Response, body *apiResponse, raw []byte) *Error {
	e := &Error{
		Type:    ErrorTypeUnknown,
		Message: body.ErrorType,
		Body:    body.Message,
		Code:    resp.StatusCode,
	}
	if e.Message == "" {
		e.Message = body.Message
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status code %d", resp.StatusCode)
		e.Body = previewBody(raw)
	}

	switch {
	case body.TwoFactorRequired || body.ErrorType == "two_factor_required":
		e.Type = ErrorTypeChallenge
		if body.TwoFactorInfo != nil {
			e.challengeToken = body.TwoFactorInfo.TwoFactorIdentifier
			e.challengeMethods, e.preferredMethod = body.TwoFactorInfo.deliveryMethods()
		}
	case body.ErrorType == "checkpoint_required" || body.ErrorType == "challenge_required":
		e.Type = ErrorTypeChallenge
		if body.Challenge != nil {
			e.challengeToken = body.Challenge.APIPath
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Type = ErrorTypeAuth
	case resp.StatusCode >= 500:
		e.Type = ErrorTypeServerError
	case resp.StatusCode == 0:
		e.Type = ErrorTypeNetwork
	}

	return e
}

func previewBody(raw []byte) string {
	const max = 200
	s := string(raw)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
