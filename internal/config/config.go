package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	S3            S3Config
	Transcription TranscriptionConfig
	Gemini        GeminiConfig
	Pipeline      PipelineConfig
	Worker        WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PresignExpiry   time.Duration
}

type TranscriptionConfig struct {
	BaseURL             string
	APIKey              string
	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	PollMultiplier      float64
	ErrorMultiplier     float64
	PollMaxAttempts     int
	PollDeadline        time.Duration
}

type GeminiConfig struct {
	APIKey string
}

type PipelineConfig struct {
	MaxFileSize  int64
	DriveBaseURL string
	FFmpegPath   string
	TempDir      string
	// DefaultDurationMinutes applies when a live session request omits one.
	DefaultDurationMinutes int
}

type WorkerConfig struct {
	Concurrency      int
	RetryMaxAttempts int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "interview_analyzer"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("S3_BUCKET", "interview-recordings"),
			PresignExpiry:   getEnvAsDuration("S3_PRESIGN_EXPIRY", "24h"),
		},
		Transcription: TranscriptionConfig{
			BaseURL:             getEnv("TRANSCRIPTION_BASE_URL", "https://api.assemblyai.com"),
			APIKey:              getEnv("TRANSCRIPTION_API_KEY", ""),
			PollInitialInterval: getEnvAsDuration("TRANSCRIPTION_POLL_INITIAL", "1s"),
			PollMaxInterval:     getEnvAsDuration("TRANSCRIPTION_POLL_MAX", "10s"),
			PollMultiplier:      getEnvAsFloat("TRANSCRIPTION_POLL_MULTIPLIER", 1.2),
			ErrorMultiplier:     getEnvAsFloat("TRANSCRIPTION_ERROR_MULTIPLIER", 1.5),
			PollMaxAttempts:     getEnvAsInt("TRANSCRIPTION_POLL_MAX_ATTEMPTS", 120),
			PollDeadline:        getEnvAsDuration("TRANSCRIPTION_POLL_DEADLINE", "15m"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			MaxFileSize:            getEnvAsInt64("MAX_FILE_SIZE", 104857600),
			DriveBaseURL:           getEnv("DRIVE_BASE_URL", "https://www.googleapis.com/drive/v3"),
			FFmpegPath:             getEnv("FFMPEG_PATH", "ffmpeg"),
			TempDir:                getEnv("TEMP_DIR", os.TempDir()),
			DefaultDurationMinutes: getEnvAsInt("SESSION_DEFAULT_MINUTES", 15),
		},
		Worker: WorkerConfig{
			Concurrency:      getEnvAsInt("WORKER_CONCURRENCY", 3),
			RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
