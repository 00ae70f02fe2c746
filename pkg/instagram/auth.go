package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"igpublisher/pkg/session"
)

// Login submits username and password. On success the resulting cookies and
// ids are sealed into the opaque auth-state blob. Two-factor and checkpoint
// requirements surface as *Error values carrying the challenge metadata.
func (c *Client) Login(ctx context.Context, username, password string, device json.RawMessage) (*session.LoginResult, error) {
	flow := &flowState{
		username: username,
		cookies:  make(map[string]string),
	}
	c.flow = flow

	// Pick up the device's user agent so the whole flow looks consistent
	var dev struct {
		UserAgent string `json:"user_agent"`
	}
	if len(device) > 0 {
		_ = json.Unmarshal(device, &dev)
	}
	if dev.UserAgent != "" {
		c.userAgent = dev.UserAgent
	}

	// Prime the flow: the login endpoint requires a csrftoken cookie
	if err := c.prime(ctx, flow); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", encPassword(password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	resp, raw, err := c.doRequest(ctx, http.MethodPost, LoginEndpoint, form, flow.cookies)
	if err != nil {
		return nil, err
	}

	var body apiResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse login response: %v", jsonErr),
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}

	if body.ok() && body.Authenticated {
		flow.userID = body.UserID
		return c.sealFlow(flow)
	}

	if body.ok() && !body.Authenticated {
		// Wrong password: the service answers "ok" with authenticated=false
		return nil, &Error{
			Type:    ErrorTypeAuth,
			Message: "bad_password",
			Body:    "the password you entered is incorrect",
			Code:    resp.StatusCode,
		}
	}

	apiErr := c.apiError(resp, &body, raw)
	if body.TwoFactorInfo != nil {
		flow.twoFactor = body.TwoFactorInfo.TwoFactorIdentifier
	}
	if body.Challenge != nil {
		flow.challenge = body.Challenge.APIPath
	}
	return nil, apiErr
}

// prime fetches the landing page to collect the csrftoken and friends.
func (c *Client) prime(ctx context.Context, flow *flowState) error {
	resp, _, err := c.doRequest(ctx, http.MethodGet, "/", nil, flow.cookies)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("landing page returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
	if flow.cookies["csrftoken"] == "" {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: "no csrftoken cookie in landing response",
			Code:    resp.StatusCode,
		}
	}
	return nil
}

// encPassword wraps the password in the browser-style envelope the web login
// endpoint accepts in place of client-side encryption.
func encPassword(password string) string {
	return fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password)
}

// ProbeIdentity issues the lightweight "who am I" call with a stored session.
// Any failure means the session must be re-established; the caller decides
// what to do about it.
func (c *Client) ProbeIdentity(ctx context.Context, blob json.RawMessage) error {
	state, err := decodeAuthState(blob)
	if err != nil {
		return err
	}

	resp, raw, err := c.doRequest(ctx, http.MethodGet, CurrentUserEndpoint, nil, state.Cookies)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Type:    ErrorTypeAuth,
			Message: fmt.Sprintf("identity probe returned status %d", resp.StatusCode),
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}

	var body currentUserResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse probe response: %v", jsonErr),
			Code:    resp.StatusCode,
		}
	}
	if body.Status != "ok" || body.User == nil {
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "identity probe rejected session",
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// SubmitTwoFactorCode submits a verification code bound to the two-factor
// identifier from the failed login. When the service completes the session
// directly the result carries a full auth state; otherwise the login must be
// re-attempted.
func (c *Client) SubmitTwoFactorCode(ctx context.Context, username, token, code string) (*session.LoginResult, error) {
	flow := c.currentFlow(username)
	if token == "" {
		token = flow.twoFactor
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("identifier", token)
	form.Set("verificationCode", code)
	form.Set("verification_method", "1")

	resp, raw, err := c.doRequest(ctx, http.MethodPost, TwoFactorEndpoint, form, flow.cookies)
	if err != nil {
		return nil, err
	}

	var body apiResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse two-factor response: %v", jsonErr),
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}

	if body.ok() && (body.Authenticated || body.LoggedInUser != nil) {
		if body.UserID != "" {
			flow.userID = body.UserID
		} else if body.LoggedInUser != nil {
			flow.userID = fmt.Sprintf("%d", body.LoggedInUser.PK)
		}
		return c.sealFlow(flow)
	}
	if body.ok() {
		// Code accepted but no completed session in the reply
		return &session.LoginResult{}, nil
	}

	return nil, c.apiError(resp, &body, raw)
}

// challengeChoices maps delivery methods onto the numeric choice values the
// checkpoint endpoint expects.
var challengeChoices = map[session.DeliveryMethod]string{
	session.DeliverySMS:   "0",
	session.DeliveryEmail: "1",
}

// SelectChallengeMethod asks the service to dispatch a checkpoint code over
// the given method. The token is the challenge api_path from the login error.
func (c *Client) SelectChallengeMethod(ctx context.Context, token string, method session.DeliveryMethod) error {
	flow := c.currentFlow("")
	path := c.challengePath(flow, token)

	choice, ok := challengeChoices[method]
	if !ok {
		choice = challengeChoices[session.DeliveryEmail]
	}

	form := url.Values{}
	form.Set("choice", choice)

	resp, raw, err := c.doRequest(ctx, http.MethodPost, path, form, flow.cookies)
	if err != nil {
		return err
	}

	var body apiResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse challenge response: %v", jsonErr),
			Code:    resp.StatusCode,
		}
	}
	if !body.ok() {
		return c.apiError(resp, &body, raw)
	}
	return nil
}

// SubmitChallengeCode submits a checkpoint code. Result semantics match
// SubmitTwoFactorCode.
func (c *Client) SubmitChallengeCode(ctx context.Context, token, code string) (*session.LoginResult, error) {
	flow := c.currentFlow("")
	path := c.challengePath(flow, token)

	form := url.Values{}
	form.Set("security_code", code)

	resp, raw, err := c.doRequest(ctx, http.MethodPost, path, form, flow.cookies)
	if err != nil {
		return nil, err
	}

	var body apiResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse challenge response: %v", jsonErr),
			Code:    resp.StatusCode,
		}
	}

	if body.ok() && body.LoggedInUser != nil {
		flow.userID = fmt.Sprintf("%d", body.LoggedInUser.PK)
		return c.sealFlow(flow)
	}
	if body.ok() {
		return &session.LoginResult{}, nil
	}

	return nil, c.apiError(resp, &body, raw)
}

// currentFlow returns the in-flight login flow, creating an empty one for
// the degenerate case of challenge calls with no preceding login.
func (c *Client) currentFlow(username string) *flowState {
	if c.flow == nil {
		c.flow = &flowState{
			username: username,
			cookies:  make(map[string]string),
		}
	}
	return c.flow
}

func (c *Client) challengePath(flow *flowState, token string) string {
	if token != "" {
		return token
	}
	return flow.challenge
}

// sealFlow turns the accumulated flow cookies into the opaque auth-state
// blob and clears the flow.
func (c *Client) sealFlow(flow *flowState) (*session.LoginResult, error) {
	state := &authState{
		Cookies:   flow.cookies,
		UserID:    flow.userID,
		CSRFToken: flow.cookies["csrftoken"],
		UserAgent: c.userAgent,
	}
	blob, err := state.encode()
	if err != nil {
		return nil, err
	}
	c.flow = nil
	return &session.LoginResult{AuthState: blob}, nil
}
