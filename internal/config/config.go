package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort       = "8080"
	defaultDBPath     = "prometna.db"
	defaultModel      = "gemini-2.5-flash"
	defaultLiveModel  = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultSubscriber = "mailto:info@ss-tehnicka-prometna-st.skole.hr"
	defaultChatIdle   = 30 * time.Minute
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	GeminiAPIKey    string
	GeminiModel     string
	GeminiLiveModel string

	// SheetsWebhookURL is the Apps Script web app that receives logChat/logReport posts.
	SheetsWebhookURL string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	// AdminToken guards the announcement broadcast endpoint. Empty disables it.
	AdminToken string

	ChatIdleTTL time.Duration
}

// PushEnabled reports whether both halves of the VAPID key pair are configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:             getEnv("PROMETNA_PORT", defaultPort),
		DBPath:           getEnv("PROMETNA_DB_PATH", defaultDBPath),
		LogLevel:         getEnv("PROMETNA_LOG_LEVEL", "info"),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:      getEnv("GEMINI_MODEL", defaultModel),
		GeminiLiveModel:  getEnv("GEMINI_LIVE_MODEL", defaultLiveModel),
		SheetsWebhookURL: strings.TrimSpace(os.Getenv("SHEETS_WEBHOOK_URL")),
		VAPIDPublicKey:   strings.TrimSpace(os.Getenv("VAPID_PUBLIC_KEY")),
		VAPIDPrivateKey:  strings.TrimSpace(os.Getenv("VAPID_PRIVATE_KEY")),
		VAPIDSubscriber:  getEnv("VAPID_SUBSCRIBER", defaultSubscriber),
		AdminToken:       strings.TrimSpace(os.Getenv("PROMETNA_ADMIN_TOKEN")),
		ChatIdleTTL:      defaultChatIdle,
	}

	if v := os.Getenv("CHAT_IDLE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHAT_IDLE_TTL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("CHAT_IDLE_TTL must be positive, got %s", v)
		}
		cfg.ChatIdleTTL = d
	}

	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return Config{}, fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
