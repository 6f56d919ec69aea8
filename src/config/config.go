package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string
	LogFormat    string

	RawDataDir        string
	ProcessedDataDir  string
	ModelArtifactPath string

	CombinedResaleFilename   string
	CompletionStatusFilename string

	DataGovBaseURL         string
	DownloadTimeout        time.Duration
	DownloadRequestsPerSec float64

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	LLMMaxTokens     int
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	downloadTimeout := getEnvAsDuration("DOWNLOAD_TIMEOUT", 60*time.Second)

	downloadRPSStr := getEnv("DOWNLOAD_RPS", "2")
	downloadRPS, err := strconv.ParseFloat(downloadRPSStr, 64)
	if err != nil || downloadRPS <= 0 {
		log.Printf("WARNING: Invalid DOWNLOAD_RPS value '%s'. Using default 2. Error (if any): %v", downloadRPSStr, err)
		downloadRPS = 2
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./hdbfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),

		RawDataDir:        getEnv("RAW_DATA_DIR", "data/raw"),
		ProcessedDataDir:  getEnv("PROCESSED_DATA_DIR", "data/processed"),
		ModelArtifactPath: getEnv("MODEL_ARTIFACT_PATH", "data/resale_price_model.json"),

		CombinedResaleFilename:   getEnv("COMBINED_RESALE_FILENAME", "resale_prices_all_combined_cleaned.csv"),
		CompletionStatusFilename: getEnv("COMPLETION_STATUS_FILENAME", "completion_status_cleaned.csv"),

		DataGovBaseURL:         getEnv("DATA_GOV_BASE_URL", "https://api-open.data.gov.sg"),
		DownloadTimeout:        downloadTimeout,
		DownloadRequestsPerSec: downloadRPS,

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		LLMMaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 4000),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, RawDataDir=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.RawDataDir)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
