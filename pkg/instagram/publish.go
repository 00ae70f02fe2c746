package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Upload describes one video to publish.
type Upload struct {
	VideoBytes []byte
	CoverBytes []byte
	Caption    string
	IsReel     bool
}

// PublishResult identifies the created media.
type PublishResult struct {
	MediaID string
	Code    string
}

// configureAttempt is one payload shape in the configure fallback ladder.
type configureAttempt struct {
	name string
	call func() (*configureResponse, error)
}

// PublishVideo uploads the video bytes once and then walks the configure
// variants in order until one is accepted. The endpoints disagree across
// account cohorts on which payload shape they want, so a rejection of one
// shape is not fatal as long as a later shape succeeds. IsReel decides which
// shape is tried first: reels start at the clips endpoint, plain posts at
// the plain configure form, with the other shapes kept as fallbacks.
func (c *Client) PublishVideo(ctx context.Context, blob json.RawMessage, up Upload) (*PublishResult, error) {
	if len(up.VideoBytes) == 0 {
		return nil, &Error{Type: ErrorTypeUnknown, Message: "no video bytes to publish"}
	}

	state, err := decodeAuthState(blob)
	if err != nil {
		return nil, err
	}

	uploadID := fmt.Sprintf("%d", time.Now().UnixMilli())
	if err := c.uploadVideo(ctx, state, uploadID, up.VideoBytes); err != nil {
		return nil, err
	}
	if len(up.CoverBytes) > 0 {
		if err := c.uploadCover(ctx, state, uploadID, up.CoverBytes); err != nil {
			return nil, err
		}
	}

	clips := configureAttempt{"configure_to_clips", func() (*configureResponse, error) {
		return c.configure(ctx, state, ConfigureClipsEndpoint, clipsForm(uploadID, up.Caption))
	}}
	clipsFlag := configureAttempt{"configure_clips_flag", func() (*configureResponse, error) {
		return c.configure(ctx, state, ConfigureEndpoint, clipsFlagForm(uploadID, up.Caption))
	}}
	plain := configureAttempt{"configure", func() (*configureResponse, error) {
		return c.configure(ctx, state, ConfigureEndpoint, plainForm(uploadID, up.Caption))
	}}

	configures := []configureAttempt{plain, clipsFlag, clips}
	if up.IsReel {
		configures = []configureAttempt{clips, clipsFlag, plain}
	}

	var lastErr error
	for _, variant := range configures {
		body, err := variant.call()
		if err != nil {
			c.logger.WarnWithFields("configure variant rejected", map[string]interface{}{
				"variant": variant.name,
				"error":   err.Error(),
			})
			lastErr = err
			continue
		}
		res := &PublishResult{}
		if body.Media != nil {
			res.MediaID = body.Media.ID
			res.Code = body.Media.Code
			if res.MediaID == "" && body.Media.PK != 0 {
				res.MediaID = fmt.Sprintf("%d", body.Media.PK)
			}
		}
		c.logger.InfoWithFields("video published", map[string]interface{}{
			"variant":  variant.name,
			"media_id": res.MediaID,
		})
		return res, nil
	}

	return nil, lastErr
}

// uploadVideo streams the raw bytes to the resumable upload endpoint under
// a fresh entity name. The configure calls reference it by upload id.
func (c *Client) uploadVideo(ctx context.Context, state *authState, uploadID string, video []byte) error {
	params := map[string]interface{}{
		"upload_id":         uploadID,
		"media_type":        2,
		"upload_media_type": "video",
	}
	entity := fmt.Sprintf("igpub_%s", uploadID)
	return c.uploadEntity(ctx, state, UploadEndpoint, entity, "application/octet-stream", params, video)
}

// uploadCover attaches a cover frame to the pending upload. The photo
// endpoint wants the same upload id as the video it covers.
func (c *Client) uploadCover(ctx context.Context, state *authState, uploadID string, cover []byte) error {
	params := map[string]interface{}{
		"upload_id":  uploadID,
		"media_type": 2,
	}
	entity := fmt.Sprintf("igpub_%s_cover", uploadID)
	return c.uploadEntity(ctx, state, UploadPhotoEndpoint, entity, "image/jpeg", params, cover)
}

func (c *Client) uploadEntity(ctx context.Context, state *authState, endpoint, entity, contentType string, ruploadParams map[string]interface{}, payload []byte) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Type: ErrorTypeNetwork, Message: fmt.Sprintf("request pacing aborted: %v", err)}
		}
	}

	params, _ := json.Marshal(ruploadParams)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint+entity, bytes.NewReader(payload))
	if err != nil {
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create upload request: %v", err)}
	}

	req.Header.Set("User-Agent", state.UserAgent)
	req.Header.Set("X-IG-App-ID", webAppID)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Entity-Name", entity)
	req.Header.Set("X-Entity-Length", fmt.Sprintf("%d", len(payload)))
	req.Header.Set("X-Instagram-Rupload-Params", string(params))
	req.Header.Set("Offset", "0")
	req.Header.Set("Cookie", cookieHeader(state.Cookies))
	if state.CSRFToken != "" {
		req.Header.Set("X-CSRFToken", state.CSRFToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Type: ErrorTypeNetwork, Message: fmt.Sprintf("upload failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Type: ErrorTypeNetwork, Message: fmt.Sprintf("failed to read upload response: %v", err), Code: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Type:    ErrorTypeServerError,
			Message: fmt.Sprintf("upload returned status %d", resp.StatusCode),
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}

	var body uploadResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse upload response: %v", jsonErr),
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}
	if body.Status != "ok" {
		return &Error{
			Type:    ErrorTypeServerError,
			Message: "upload rejected",
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("bytes uploaded", map[string]interface{}{
		"entity": entity,
		"size":   len(payload),
	})
	return nil
}

func (c *Client) configure(ctx context.Context, state *authState, endpoint string, form url.Values) (*configureResponse, error) {
	resp, raw, err := c.doRequest(ctx, http.MethodPost, endpoint, form, state.Cookies)
	if err != nil {
		return nil, err
	}

	var body configureResponse
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse configure response: %v", jsonErr),
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}
	if body.Status != "ok" {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("configure returned status %d", resp.StatusCode)
		}
		return nil, &Error{
			Type:    ErrorTypeServerError,
			Message: msg,
			Body:    previewBody(raw),
			Code:    resp.StatusCode,
		}
	}
	return &body, nil
}

func baseConfigureForm(uploadID, caption string) url.Values {
	form := url.Values{}
	form.Set("upload_id", uploadID)
	form.Set("caption", caption)
	form.Set("source_type", "library")
	form.Set("disable_comments", "0")
	return form
}

func clipsForm(uploadID, caption string) url.Values {
	form := baseConfigureForm(uploadID, caption)
	form.Set("clips_entry_point", "reel")
	return form
}

func clipsFlagForm(uploadID, caption string) url.Values {
	form := baseConfigureForm(uploadID, caption)
	form.Set("is_clips_video", "1")
	return form
}

func plainForm(uploadID, caption string) url.Values {
	return baseConfigureForm(uploadID, caption)
}
