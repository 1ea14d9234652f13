// Package config reads service settings from the environment.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"typingscore/pkg/ocr"
	"typingscore/pkg/submission"
)

const (
	BackendReadAPI   = "readapi"
	BackendTesseract = "tesseract"
	BackendGemini    = "gemini"
)

// Config holds every setting of the service and its tools.
type Config struct {
	DSN         string
	AutoMigrate bool
	JWTSecret   []byte
	ListenAddr  string
	UploadBase  string

	Backend         string
	ReadAPIEndpoint string
	ReadAPIKey      string
	GeminiAPIKey    string
	GeminiModel     string
	TesseractLangs  []string
	TemplatePath    string

	PollInterval    time.Duration
	PollMaxAttempts int
	PollTimeout     time.Duration

	QualifyingLevel int
	PrivilegedUsers []string

	AdminUsername     string
	AdminPasswordHash string
}

// Load reads ./.env (without overriding the environment) and then the
// environment. Malformed numbers and durations are errors; absent keys take
// their defaults.
func Load() (Config, error) {
	LoadDotEnv(".env")
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	cfg := Config{
		DSN:               get("DB_DSN", ""),
		AutoMigrate:       parseBool(get("DB_AUTO_MIGRATE", "true")),
		JWTSecret:         []byte(get("JWT_SECRET", "dev-insecure-secret-change")),
		ListenAddr:        get("LISTEN_ADDR", ":8081"),
		UploadBase:        get("UPLOAD_BASE", "uploads"),
		Backend:           strings.ToLower(get("OCR_BACKEND", BackendReadAPI)),
		ReadAPIEndpoint:   get("READ_API_ENDPOINT", ""),
		ReadAPIKey:        get("READ_API_KEY", ""),
		GeminiAPIKey:      get("GEMINI_API_KEY", ""),
		GeminiModel:       get("GEMINI_MODEL", ""),
		TesseractLangs:    splitList(get("TESSERACT_LANGS", "jpn,eng")),
		TemplatePath:      get("TEMPLATE_PATH", ""),
		PrivilegedUsers:   splitList(get("PRIVILEGED_USERS", "")),
		AdminUsername:     get("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: get("ADMIN_PASSWORD_HASH", ""),
	}

	var err error
	if cfg.PollInterval, err = parseDuration("POLL_INTERVAL", get("POLL_INTERVAL", ""), ocr.DefaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.PollTimeout, err = parseDuration("POLL_TIMEOUT", get("POLL_TIMEOUT", ""), ocr.DefaultPollTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollMaxAttempts, err = parseInt("POLL_MAX_ATTEMPTS", get("POLL_MAX_ATTEMPTS", ""), ocr.DefaultPollMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.QualifyingLevel, err = parseInt("QUALIFYING_LEVEL", get("QUALIFYING_LEVEL", ""), submission.DefaultQualifyingLevel); err != nil {
		return Config{}, err
	}
	switch cfg.Backend {
	case BackendReadAPI, BackendTesseract, BackendGemini:
	default:
		return Config{}, fmt.Errorf("OCR_BACKEND: unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

// Policy returns the submission gating rules.
func (c Config) Policy() submission.Policy {
	return submission.Policy{QualifyingLevel: c.QualifyingLevel, PrivilegedUsers: c.PrivilegedUsers}
}

// LoadDotEnv loads key=value pairs from path into the environment without
// overwriting variables that are already set. Lines starting with # are ignored.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

func parseInt(key, v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return n, nil
}

func parseDuration(key, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
