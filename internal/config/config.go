package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"detectboard/internal/model"
)

type Config struct {
	Port                  int
	Password              string
	ModelPath             string
	ConfigPath            string
	ModelFormat           string // "yolov5" lub "ssd"
	LabelsPath            string
	InputSize             int
	ImageDirectory        string
	DatabasePath          string
	ImageBufferLimit      int
	ImageBufferFlush      int // w sekundach
	ProcessingWorkers     int // Liczba instancji detektora w puli
	MaxImageDirectorySize int64
	LogDirectory          string
	StaticDirectory       string

	DefaultConfidence    float64
	DefaultIoU           float64
	DefaultAgnostic      bool
	DefaultMultiLabel    bool
	DefaultMaxDetections int

	AnalysisAPIKey    string
	AnalysisBaseURL   string
	AnalysisModel     string
	AnalysisPrompt    string
	AnalysisMaxTokens int
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() *Config {
	// Brak pliku .env nie jest błędem
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "detectboard"),
		ModelPath:             getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov5s.onnx")),
		ConfigPath:            getEnv("CONFIG_PATH", ""),
		ModelFormat:           getEnv("MODEL_FORMAT", "yolov5"),
		LabelsPath:            getEnv("LABELS_PATH", ""),
		InputSize:             getEnvAsInt("INPUT_SIZE", 640),
		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "runs.db")),
		ImageBufferLimit:      getEnvAsInt("BUFFER_LIMIT", 10),
		ImageBufferFlush:      getEnvAsInt("FLUSH_INTERVAL", 30),
		ProcessingWorkers:     getEnvAsInt("PROCESSING_WORKERS", 2),
		MaxImageDirectorySize: getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", 2), // w GB
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:       getEnv("STATIC_DIR", "static"),

		DefaultConfidence:    getEnvAsFloat("DEFAULT_CONFIDENCE", 0.25),
		DefaultIoU:           getEnvAsFloat("DEFAULT_IOU", 0.45),
		DefaultAgnostic:      getEnvAsBool("DEFAULT_AGNOSTIC", false),
		DefaultMultiLabel:    getEnvAsBool("DEFAULT_MULTI_LABEL", false),
		DefaultMaxDetections: getEnvAsInt("DEFAULT_MAX_DET", 1000),

		AnalysisAPIKey:    getEnv("ANALYSIS_API_KEY", ""),
		AnalysisBaseURL:   getEnv("ANALYSIS_BASE_URL", "https://api.openai.com/v1"),
		AnalysisModel:     getEnv("ANALYSIS_MODEL", "gpt-4o-mini"),
		AnalysisPrompt:    getEnv("ANALYSIS_PROMPT", "Describe in detail what you see in this image."),
		AnalysisMaxTokens: getEnvAsInt("ANALYSIS_MAX_TOKENS", 1200),
	}
}

// DetectionDefaults returns the detection knobs a run starts from.
func (c *Config) DetectionDefaults() model.DetectionParams {
	return model.DetectionParams{
		Confidence:    c.DefaultConfidence,
		IoU:           c.DefaultIoU,
		Agnostic:      c.DefaultAgnostic,
		MultiLabel:    c.DefaultMultiLabel,
		MaxDetections: c.DefaultMaxDetections,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
