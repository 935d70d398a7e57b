package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the effective configuration after flags, config file and
// environment have been merged by viper
type Config struct {
	SessionsDir string
	Port        int
	LogLevel    string
	LogFormat   string

	FFmpegPath      string
	MinSilence      time.Duration
	SilenceThreshDB float64
	KeepSilence     time.Duration
	Fade            time.Duration

	Formatter       string
	FormatterModel  string
	FetchReadings   bool
	FuriganaReserve bool
	OpenAIKey       string
	GeminiKey       string

	DeckName string
	APKG     bool

	MaxAge         time.Duration
	SweepInterval  time.Duration
	Concurrency    int
	AllowedOrigins []string

	S3Bucket          string
	S3Region          string
	S3Prefix          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// LoadConfig reads the configuration from viper
func LoadConfig() *Config {
	cfg := &Config{
		SessionsDir: viper.GetString("sessions.dir"),
		Port:        viper.GetInt("server.port"),
		LogLevel:    viper.GetString("log.level"),
		LogFormat:   viper.GetString("log.format"),

		FFmpegPath:      viper.GetString("audio.ffmpeg"),
		MinSilence:      time.Duration(viper.GetInt("audio.min_silence_ms")) * time.Millisecond,
		SilenceThreshDB: viper.GetFloat64("audio.silence_thresh_db"),
		KeepSilence:     time.Duration(viper.GetInt("audio.keep_silence_ms")) * time.Millisecond,
		Fade:            time.Duration(viper.GetInt("audio.fade_ms")) * time.Millisecond,

		Formatter:       viper.GetString("formatter.provider"),
		FormatterModel:  viper.GetString("formatter.model"),
		FetchReadings:   viper.GetBool("formatter.readings"),
		FuriganaReserve: viper.GetBool("furigana.reserve"),
		OpenAIKey:       GetOpenAIKey(),
		GeminiKey:       GetGeminiKey(),

		DeckName: viper.GetString("anki.deck_name"),
		APKG:     viper.GetBool("anki.apkg"),

		MaxAge:         viper.GetDuration("sessions.max_age"),
		SweepInterval:  viper.GetDuration("sessions.sweep_interval"),
		Concurrency:    viper.GetInt("batch.concurrency"),
		AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),

		S3Bucket:          viper.GetString("storage.s3_bucket"),
		S3Region:          viper.GetString("storage.s3_region"),
		S3Prefix:          viper.GetString("storage.s3_prefix"),
		S3Endpoint:        viper.GetString("storage.s3_endpoint"),
		S3AccessKeyID:     firstNonEmpty(os.Getenv("AWS_ACCESS_KEY_ID"), viper.GetString("storage.s3_access_key_id")),
		S3SecretAccessKey: firstNonEmpty(os.Getenv("AWS_SECRET_ACCESS_KEY"), viper.GetString("storage.s3_secret_access_key")),
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg
}

// S3Enabled reports whether finished archives are uploaded
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// NewLogger creates a structured logger for the given level and format.
// "json" selects the JSON handler, anything else the text handler.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".vocabdeck" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".vocabdeck")
	}

	// Environment variables, e.g. VOCABDECK_SERVER_PORT for server.port
	viper.SetEnvPrefix("VOCABDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("formatter.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("formatter.gemini_key")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
