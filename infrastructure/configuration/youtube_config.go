package configuration

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// YouTubeConfig represents the OAuth client and API key used against YouTube.
type YouTubeConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	APIKey       string   `mapstructure:"api_key"`
	Scopes       []string `mapstructure:"scopes"`
	Endpoint     string   `mapstructure:"endpoint"`
	Timeout      time.Duration
}

var defaultScopes = []string{
	"https://www.googleapis.com/auth/youtube",
	"https://www.googleapis.com/auth/youtube.readonly",
}

// GetYouTubeConfig returns YouTube configuration from JSON config with environment variable fallback.
// Host tokens are never read from here; they live in the credential store.
func GetYouTubeConfig() (*YouTubeConfig, error) {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 9002
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/youtube/callback", scheme, port)
	config := &YouTubeConfig{
		ClientID:     getConfigValue(C.YouTube.ClientID, "YOUTUBE_CLIENT_ID", ""),
		ClientSecret: getConfigValue(C.YouTube.ClientSecret, "YOUTUBE_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(C.YouTube.RedirectURI, "YOUTUBE_REDIRECT_URL", defaultRedirect),
		APIKey:       getConfigValue(C.YouTube.APIKey, "YOUTUBE_API_KEY", ""),
		Endpoint:     getConfigValue(C.YouTube.Endpoint, "YOUTUBE_ENDPOINT", ""),
		Scopes:       C.YouTube.Scopes,
		Timeout:      time.Duration(C.Jukebox.UpstreamTimeoutSeconds) * time.Second,
	}
	if v := os.Getenv("YOUTUBE_SCOPES"); v != "" {
		config.Scopes = strings.Split(v, ",")
	}
	if len(config.Scopes) == 0 {
		config.Scopes = defaultScopes
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	if config.ClientID == "" || config.ClientSecret == "" {
		return config, fmt.Errorf("youtube oauth client is not configured: set YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET")
	}
	return config, nil
}

// getConfigValue gets value from config first, then environment variable, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	// Environment variable takes precedence when provided
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Otherwise use config value if set and not a placeholder
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
