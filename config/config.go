package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Most values have simple defaults so a bare `recbox server` works locally.
type Config struct {
	// Directories
	DataDir    string // Base directory for all local data
	CaptureDir string // Subdirectory for in-flight (temporary) capture output: DataDir/captures
	AudioDir   string // Subdirectory for finalized audio files: DataDir/audio

	// Capture
	FFmpegPath  string
	InputFormat string // ffmpeg input format, e.g. "alsa" or "avfoundation"
	InputDevice string // ffmpeg input device, e.g. "default"

	// Key-value persistence backing the recording index
	KVBackend string // "redis" or "mysql"

	// Redis (recording index + usage counters)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MySQL (alternative index backend)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Transcription service
	TranscribeURL string
	TranscribeKey string
	Language      string

	// Actionable-points extraction
	ExtractProvider string // "remote" or "openai"
	ExtractURL      string
	ExtractKey      string
	OpenAIKey       string

	// Audio archive (optional object-storage copy of finalized audio)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// HTTP API
	ServerAddr           string
	JWTSecret            string
	OperatorUser         string
	OperatorPassword     string // plaintext fallback, used only when no hash is set
	OperatorPasswordHash string // bcrypt hash, preferred

	// Logging
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		DataDir:    dataDir,
		CaptureDir: filepath.Join(dataDir, "captures"),
		AudioDir:   filepath.Join(dataDir, "audio"),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		InputFormat: getEnv("CAPTURE_INPUT_FORMAT", "alsa"),
		InputDevice: getEnv("CAPTURE_INPUT_DEVICE", "default"),

		KVBackend: getEnv("KV_BACKEND", "redis"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "recbox"),

		TranscribeURL: getEnv("TRANSCRIBE_URL", "http://127.0.0.1:9000/v1/transcribe"),
		TranscribeKey: os.Getenv("TRANSCRIBE_API_KEY"),
		Language:      getEnv("TRANSCRIBE_LANGUAGE", "en"),

		ExtractProvider: getEnv("EXTRACT_PROVIDER", "remote"),
		ExtractURL:      getEnv("EXTRACT_URL", "http://127.0.0.1:9000/v1/actionable-points"),
		ExtractKey:      os.Getenv("EXTRACT_API_KEY"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "recbox"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		ServerAddr:           getEnv("SERVER_ADDR", ":8080"),
		JWTSecret:            getEnv("JWT_SECRET", "recbox-dev-secret"),
		OperatorUser:         getEnv("OPERATOR_USER", "operator"),
		OperatorPassword:     os.Getenv("OPERATOR_PASSWORD"),
		OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}

// ArchiveEnabled reports whether the optional object-storage archive is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.MinioEndpoint != ""
}
