package app

import (
	"os"
	"path/filepath"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	// BaseURL is the backend API root.
	BaseURL string

	// HTTPTimeout bounds every request end-to-end.
	HTTPTimeout time.Duration

	LogLevel  string
	LogFormat string // "pretty" or "json"

	// CredentialFile overrides the default credential file location.
	CredentialFile string

	// SealCredentials encrypts the credential file under a device-bound key.
	SealCredentials bool

	// MetricsAddr, when set, serves /healthz and /metrics locally while a
	// command runs.
	MetricsAddr string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		BaseURL:         EnvString("STRATHCONNECT_API_URL", "http://localhost:3001"),
		HTTPTimeout:     EnvDuration("STRATHCONNECT_HTTP_TIMEOUT", 30*time.Second),
		LogLevel:        EnvString("STRATHCONNECT_LOG_LEVEL", "info"),
		LogFormat:       EnvString("STRATHCONNECT_LOG_FORMAT", "pretty"),
		CredentialFile:  EnvString("STRATHCONNECT_CREDENTIALS_FILE", ""),
		SealCredentials: EnvBool("STRATHCONNECT_SEAL_CREDENTIALS", false),
		MetricsAddr:     EnvString("STRATHCONNECT_METRICS_ADDR", ""),
	}
}

// credentialPath resolves where the credential file lives.
func (c Config) credentialPath() (string, error) {
	if c.CredentialFile != "" {
		return c.CredentialFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "strathconnect", "credentials.json"), nil
}
