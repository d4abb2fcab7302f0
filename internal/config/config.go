// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"mepbackend/internal/logger"
)

// Variables available everywhere
var (
	baseDir         string
	dataDirectory   string
	logsDirectory   string
	exportDirectory string
	dbPath          string
	seedFilePath    string

	AllowedOrigin       string // For CORS
	ExportRetentionDays int
)

//
// --- Utility Helpers ---
//

// Helper: get a setting based on ENVIRONMENT (dev or prod)
func GetEnvBasedSetting(base string) string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	return os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(env)))
}

// Helper: log which environment is running
func LogCurrentEnvironment() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	if env == "dev" {
		logger.LogInfo("Running in development environment")
	} else {
		logger.LogInfo("Running in production environment")
	}
}

//
// --- Loaders ---
//

// LoadEnv reads .env file
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	} else {
		log.Printf("Current working directory: %s", wd)
	}

	err = godotenv.Load(".env")
	if err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}
}

// LoggerConfig returns a logger.Config struct populated from environment
func LoggerConfig() logger.Config {
	logDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logDir == "" {
		logDir = "./logs"
	}

	logFormat := GetEnvBasedSetting("LOG_FILE_FORMAT")
	if logFormat == "" {
		logFormat = "server_%s.log"
	}

	timezone := os.Getenv("TIME_ZONE")
	if timezone == "" {
		timezone = "Local"
	}

	return logger.Config{
		LogsDirectory: logDir,
		LogFileFormat: logFormat,
		TimeZone:      timezone,
	}
}

// ConfigurePaths sets up folders and paths
func ConfigurePaths() {
	wd, err := os.Getwd()
	if err != nil {
		logger.LogFatal("Failed to get working directory: %v", err)
	}
	baseDir = wd

	dataDir := GetEnvBasedSetting("DATA_DIRECTORY")
	if dataDir != "" {
		dataDirectory = dataDir
	} else {
		dataDirectory = filepath.Join(baseDir, "data")
	}

	logsDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logsDir != "" {
		logsDirectory = logsDir
	} else {
		logsDirectory = filepath.Join(baseDir, "logs")
	}

	exportDir := GetEnvBasedSetting("EXPORT_DIRECTORY")
	if exportDir != "" {
		exportDirectory = exportDir
	} else {
		exportDirectory = filepath.Join(baseDir, "exports")
	}

	dbPath = GetEnvBasedSetting("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDirectory, "checklist.db")
	}

	seedFilePath = GetEnvBasedSetting("SEED_FILE")
	if seedFilePath == "" {
		seedFilePath = filepath.Join(dataDirectory, "products_seed.json")
	}

	retention := os.Getenv("EXPORT_RETENTION_DAYS")
	if retention != "" {
		days, err := strconv.Atoi(retention)
		if err != nil || days < 0 {
			logger.LogWarn("Invalid EXPORT_RETENTION_DAYS: %s, using default 30", retention)
			ExportRetentionDays = 30
		} else {
			ExportRetentionDays = days
		}
	} else {
		ExportRetentionDays = 30
	}
}

// LoadCORSConfig loads CORS settings. The UI is served elsewhere, so the
// API must name the origin it trusts.
func LoadCORSConfig() {
	AllowedOrigin = GetEnvBasedSetting("ALLOWED_ORIGIN")
	if AllowedOrigin == "" {
		AllowedOrigin = "*" // Allow all - be careful in prod
		logger.LogWarn("ALLOWED_ORIGIN not set, using '*' (allow all origins) - SECURITY RISK")
	} else {
		logger.LogInfo("Allowed Origin: %s", AllowedOrigin)
	}
}

//
// --- Getters (exported) ---
//

func DataDirectory() string {
	return dataDirectory
}

func LogsDirectory() string {
	return logsDirectory
}

func ExportDirectory() string {
	return exportDirectory
}

func DBPath() string {
	return dbPath
}

func SeedFilePath() string {
	return seedFilePath
}
