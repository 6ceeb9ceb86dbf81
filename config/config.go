package config

import (
	"errors"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Scrape target
	BaseURL            string
	MaxPages           int
	MaxListingsPerPage int

	// Browser
	NavTimeout time.Duration
	Headless   bool
	ChromeBin  string
	UserAgents []string

	// Politeness / resilience
	MaxRetries     int
	RetryBaseDelay time.Duration
	DelayMinMs     int
	DelayMaxMs     int
	MaxConcurrency int

	// Outputs
	CSVOutputPath string
	LogFile       string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// defaultUserAgents is the rotation pool applied when USER_AGENT is unset.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	userAgents := defaultUserAgents
	if ua := os.Getenv("USER_AGENT"); ua != "" {
		userAgents = []string{ua}
	}

	return &Config{
		BaseURL:            getEnv("BASE_URL", "https://www.subito.it/annunci-italia/vendita/moto/"),
		MaxPages:           getEnvInt("MAX_PAGES", 5),
		MaxListingsPerPage: getEnvInt("MAX_LISTINGS_PER_PAGE", 30),

		NavTimeout: time.Duration(getEnvInt("NAV_TIMEOUT_MS", 90000)) * time.Millisecond,
		Headless:   getEnvBool("HEADLESS", true),
		ChromeBin:  getEnv("CHROME_BIN", ""),
		UserAgents: userAgents,

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond,
		DelayMinMs:     getEnvInt("DELAY_MIN_MS", 1000),
		DelayMaxMs:     getEnvInt("DELAY_MAX_MS", 3000),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_listings.csv"),
		LogFile:       getEnv("LOG_FILE", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", ""),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// Validate checks the presence of required settings. Missing database
// credentials abort the run at startup.
func (c *Config) Validate() error {
	var missing []string

	if c.PostgresUser == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if c.PostgresPassword == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if c.PostgresDB == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}

	if c.BaseURL == "" {
		return errors.New("BASE_URL must not be empty")
	}
	if c.MaxPages < 1 {
		return errors.New("MAX_PAGES must be at least 1")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RandomUserAgent picks one entry from the user-agent pool.
func (c *Config) RandomUserAgent() string {
	if len(c.UserAgents) == 0 {
		return defaultUserAgents[0]
	}
	return c.UserAgents[rand.Intn(len(c.UserAgents))]
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
