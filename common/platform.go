package common

// PlatformType defines the supported posting platforms
type PlatformType string

const (
	// PlatformTelegram represents the Telegram platform
	PlatformTelegram PlatformType = "telegram"

	// PlatformYouTube represents the YouTube platform
	PlatformYouTube PlatformType = "youtube"

	// PlatformBluesky represents the Bluesky platform
	PlatformBluesky PlatformType = "bluesky"
)

// AllPlatforms returns every platform the poster knows about, in a fixed order.
func AllPlatforms() []PlatformType {
	return []PlatformType{PlatformTelegram, PlatformYouTube, PlatformBluesky}
}

// IsValidPlatform reports whether the given string names a supported platform.
func IsValidPlatform(s string) bool {
	switch PlatformType(s) {
	case PlatformTelegram, PlatformYouTube, PlatformBluesky:
		return true
	}
	return false
}
