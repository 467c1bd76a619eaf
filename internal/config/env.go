// Package config provides configuration helpers for lingua-live commands.
package config

import "os"

// Default service configuration.
const (
	DefaultWebPort   = "8181"
	DefaultLiveModel = "gemini-2.0-flash-live-001"
	DefaultVoice     = "Aoede"
)

// GoogleAPIKey returns the Gemini API key from the environment.
// GEMINI_API_KEY takes precedence over GOOGLE_API_KEY.
func GoogleAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// WebPort returns the dashboard port from LINGUA_WEB_PORT or the default.
func WebPort() string {
	if port := os.Getenv("LINGUA_WEB_PORT"); port != "" {
		return port
	}
	return DefaultWebPort
}

// LiveModel returns the live model name from LINGUA_LIVE_MODEL or the default.
func LiveModel() string {
	if model := os.Getenv("LINGUA_LIVE_MODEL"); model != "" {
		return model
	}
	return DefaultLiveModel
}
