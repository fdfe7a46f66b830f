package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds the PostgreSQL connection parameters.
type DatabaseConfig struct {
	URL      string // Full DSN, takes precedence over the individual parts
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSL      bool
}

// GitHubConfig holds the OAuth client credentials for GitHub sign-in.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	BaseURL       string
	Database      DatabaseConfig
	SessionSecret string
	SessionTTL    time.Duration
	SessionStore  string // "postgres" or "redis"
	RedisURL      string
	CookieSecure  bool
	GitHub        GitHubConfig
	ChromePath    string
	PDFTimeout    time.Duration
	LogLevel      string
	LogFormat     string // "console" or "json"
	CORSOrigins   []string
	AuthRate      float64 // Allowed auth attempts per second per client
	AuthBurst     int
	PublicDir     string
}

// Load loads configuration from an optional .env file, then from environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	pgPort, err := getEnvInt("PGPORT", 5432)
	if err != nil {
		return nil, err
	}
	pgSSL, err := getEnvBool("PGSSL", false)
	if err != nil {
		return nil, err
	}
	cookieSecure, err := getEnvBool("COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	pdfTimeout, err := getEnvDuration("PDF_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	authRate, err := getEnvFloat("AUTH_RATE_LIMIT", 1)
	if err != nil {
		return nil, err
	}
	authBurst, err := getEnvInt("AUTH_RATE_BURST", 5)
	if err != nil {
		return nil, err
	}

	sessionStore := strings.ToLower(getEnv("SESSION_STORE", "postgres"))
	if sessionStore != "postgres" && sessionStore != "redis" {
		return nil, fmt.Errorf("SESSION_STORE must be postgres or redis, got %q", sessionStore)
	}

	chromePath := getEnv("PUPPETEER_EXECUTABLE_PATH", "")
	if chromePath == "" {
		chromePath = getEnv("CHROME_PATH", "/usr/bin/chromium")
	}

	return &Config{
		ServerPort: port,
		BaseURL:    getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("PGHOST", "localhost"),
			Port:     pgPort,
			User:     getEnv("PGUSER", "postgres"),
			Password: getEnv("PGPASSWORD", ""),
			Name:     getEnv("PGDATABASE", "skillnotes"),
			SSL:      pgSSL,
		},
		SessionSecret: getEnv("SESSION_SECRET", "some_secret"),
		SessionTTL:    sessionTTL,
		SessionStore:  sessionStore,
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CookieSecure:  cookieSecure,
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),
		},
		ChromePath:  chromePath,
		PDFTimeout:  pdfTimeout,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		AuthRate:    authRate,
		AuthBurst:   authBurst,
		PublicDir:   getEnv("PUBLIC_DIR", "./public"),
	}, nil
}

// DSN builds the pgx connection string.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	sslMode := "disable"
	if c.Database.SSL {
		sslMode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + sslMode,
	}
	if c.Database.Password != "" {
		u.User = url.UserPassword(c.Database.User, c.Database.Password)
	} else {
		u.User = url.User(c.Database.User)
	}
	return u.String()
}

// Helper to get an environment variable with a default value. Empty counts as unset.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
