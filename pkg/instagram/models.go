package instagram

import "igpublisher/pkg/session"

// apiResponse is the common envelope of private-API replies. Failure payloads
// are wildly inconsistent between endpoints; every field here is optional.
type apiResponse struct {
	Status            string         `json:"status"`
	Message           string         `json:"message"`
	ErrorType         string         `json:"error_type"`
	Authenticated     bool           `json:"authenticated"`
	UserID            string         `json:"userId"`
	TwoFactorRequired bool           `json:"two_factor_required"`
	TwoFactorInfo     *twoFactorInfo `json:"two_factor_info"`
	Challenge         *challengeInfo `json:"challenge"`
	LoggedInUser      *loggedInUser  `json:"logged_in_user"`
}

func (r *apiResponse) ok() bool { return r.Status == "ok" }

// twoFactorInfo describes a raised two-factor requirement
type twoFactorInfo struct {
	Username            string `json:"username"`
	TwoFactorIdentifier string `json:"two_factor_identifier"`
	SMSTwoFactorOn      bool   `json:"sms_two_factor_on"`
	TOTPTwoFactorOn     bool   `json:"totp_two_factor_on"`
	WhatsappTwoFactorOn bool   `json:"whatsapp_two_factor_on"`
}

// deliveryMethods maps the flags onto the delivery methods the session layer
// understands, preferring an authenticator app when configured.
func (t *twoFactorInfo) deliveryMethods() ([]session.DeliveryMethod, session.DeliveryMethod) {
	var methods []session.DeliveryMethod
	if t.TOTPTwoFactorOn {
		methods = append(methods, session.DeliveryAuthenticator)
	}
	if t.SMSTwoFactorOn {
		methods = append(methods, session.DeliverySMS)
	}
	if len(methods) == 0 {
		return nil, ""
	}
	return methods, methods[0]
}

// challengeInfo describes a raised checkpoint
type challengeInfo struct {
	URL       string `json:"url"`
	APIPath   string `json:"api_path"`
	Lock      bool   `json:"lock"`
	FlowMagic string `json:"challenge_context"`
}

// loggedInUser is the subset of the user payload we care about
type loggedInUser struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
}

// currentUserResponse is returned by the identity probe
type currentUserResponse struct {
	Status string `json:"status"`
	User   *struct {
		PK       int64  `json:"pk"`
		Username string `json:"username"`
	} `json:"user"`
}

// uploadResponse is returned by the video upload endpoint
type uploadResponse struct {
	Status   string `json:"status"`
	UploadID string `json:"upload_id"`
}

// configureResponse is returned by the media configure endpoints
type configureResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Media   *struct {
		ID   string `json:"id"`
		PK   int64  `json:"pk"`
		Code string `json:"code"`
	} `json:"media"`
}
