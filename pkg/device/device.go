package device

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
)

// Profile is the device identity presented to the service. It is stable per
// username so repeated logins look like the same physical device.
type Profile struct {
	Manufacturer   string `json:"manufacturer"`
	Model          string `json:"model"`
	AndroidVersion int    `json:"android_version"`
	AndroidRelease string `json:"android_release"`
	Resolution     string `json:"resolution"`
	DPI            string `json:"dpi"`
	CPU            string `json:"cpu"`
	DeviceID       string `json:"device_id"`
	PhoneID        string `json:"phone_id"`
	UUID           string `json:"uuid"`
	AdvertisingID  string `json:"advertising_id"`
	UserAgent      string `json:"user_agent"`
}

// hardware profiles the fingerprint is drawn from. Mid-range handsets only;
// exotic devices draw attention.
var hardware = []struct {
	manufacturer, model, resolution, dpi, cpu string
	androidVersion                            int
	androidRelease                            string
}{
	{"samsung", "SM-A515F", "1080x2400", "420dpi", "exynos9611", 11, "11"},
	{"samsung", "SM-G991B", "1080x2340", "421dpi", "exynos2100", 12, "12"},
	{"Xiaomi", "M2101K6G", "1080x2400", "440dpi", "qcom", 11, "11"},
	{"Xiaomi", "2201116SG", "1080x2400", "440dpi", "mt6833", 12, "12"},
	{"OnePlus", "KB2003", "1080x2400", "420dpi", "qcom", 11, "11"},
	{"Google", "Pixel 5", "1080x2340", "432dpi", "qcom", 12, "12"},
	{"Google", "Pixel 6a", "1080x2400", "420dpi", "gs101", 13, "13"},
	{"motorola", "moto g(60)", "1080x2460", "396dpi", "qcom", 11, "11"},
}

// namespace for deriving stable per-username ids.
var idNamespace = uuid.MustParse("8e2b04cf-6f1a-4c2e-9d35-1b6a07a2f9c4")

// ProfileFor returns the device profile for a username. The same username
// always yields the same profile.
func ProfileFor(username string) *Profile {
	h := fnv.New64a()
	h.Write([]byte(username))
	hw := hardware[h.Sum64()%uint64(len(hardware))]

	deviceID := fmt.Sprintf("android-%x", h.Sum64())

	p := &Profile{
		Manufacturer:   hw.manufacturer,
		Model:          hw.model,
		AndroidVersion: hw.androidVersion,
		AndroidRelease: hw.androidRelease,
		Resolution:     hw.resolution,
		DPI:            hw.dpi,
		CPU:            hw.cpu,
		DeviceID:       deviceID,
		PhoneID:        derivedID(username, "phone"),
		UUID:           derivedID(username, "uuid"),
		AdvertisingID:  derivedID(username, "adid"),
	}
	p.UserAgent = fmt.Sprintf(
		"Mozilla/5.0 (Linux; Android %d; %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Mobile Safari/537.36",
		p.AndroidVersion, p.Model,
	)
	return p
}

// Fingerprint returns the profile serialized as the opaque blob stored in
// the session file.
func Fingerprint(username string) json.RawMessage {
	data, err := json.Marshal(ProfileFor(username))
	if err != nil {
		// Profile is a plain struct; marshal cannot fail in practice.
		return json.RawMessage(`{}`)
	}
	return data
}

// derivedID yields a stable uuid for a username and purpose.
func derivedID(username, purpose string) string {
	return uuid.NewSHA1(idNamespace, []byte(username+":"+purpose)).String()
}
