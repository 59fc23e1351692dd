package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	DatabasePath     string
	BlobDirectory    string
	LogDirectory     string
	PublicBaseURL    string
	BlobSigningKey   string
	PresignTTL       time.Duration
	DeviceSerials    []string
	BucketWidth      time.Duration // Canonical activity bucket width (1 minute live, 5 for the legacy batch)
	ActivityMaxSpan  time.Duration // Longest span aggregated in one pass
	Timezone         string        // Civil timezone for bucket boundaries and midnight
	HidingWindow     int           // How many recent frames the occlusion classifier looks at
	HeatmapTempDir   string        // Parent for per-render temp dirs; empty means os.TempDir()
	SchedulerEnabled bool
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DatabasePath:     getEnv("DB_PATH", filepath.Join(".", "data", "petwatch.db")),
		BlobDirectory:    getEnv("BLOB_DIR", filepath.Join(".", "data", "blobs")),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		BlobSigningKey:   getEnv("BLOB_SIGNING_KEY", randomKey()),
		PresignTTL:       time.Duration(getEnvAsInt("PRESIGN_TTL_SECONDS", 3600)) * time.Second,
		DeviceSerials:    getEnvAsList("DEVICE_SERIALS", []string{"SFRXC12515GF00001"}),
		BucketWidth:      time.Duration(getEnvAsInt("BUCKET_MINUTES", 1)) * time.Minute,
		ActivityMaxSpan:  time.Duration(getEnvAsInt("ACTIVITY_MAX_SPAN_HOURS", 744)) * time.Hour,
		Timezone:         getEnv("TIMEZONE", "Asia/Seoul"),
		HidingWindow:     getEnvAsInt("HIDING_WINDOW", 5),
		HeatmapTempDir:   getEnv("HEATMAP_TEMP_DIR", ""),
		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", true),
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// randomKey is used when no signing key is configured; signed URLs then
// only survive until the process restarts.
func randomKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "petwatch-insecure-default"
	}
	return hex.EncodeToString(buf)
}
