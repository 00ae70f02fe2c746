package instagram

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// webAppID identifies the Instagram web app to the private API
	webAppID = "936619743392459"

	// LoginEndpoint performs the username/password login
	LoginEndpoint = "/api/v1/web/accounts/login/ajax/"

	// TwoFactorEndpoint submits a two-factor code bound to an identifier
	TwoFactorEndpoint = "/api/v1/web/accounts/login/ajax/two_factor/"

	// CurrentUserEndpoint is the lightweight identity probe
	CurrentUserEndpoint = "/api/v1/accounts/current_user/"

	// UploadEndpoint receives raw video bytes before configuration
	UploadEndpoint = "/rupload_igvideo/"

	// UploadPhotoEndpoint receives the cover frame for an uploaded video
	UploadPhotoEndpoint = "/rupload_igphoto/"

	// ConfigureEndpoint turns an uploaded video into a feed post
	ConfigureEndpoint = "/api/v1/media/configure/"

	// ConfigureClipsEndpoint turns an uploaded video into a reel
	ConfigureClipsEndpoint = "/api/v1/media/configure_to_clips/"
)

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// letters, numbers, periods and underscores only
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}
