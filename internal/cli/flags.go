package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	SessionsDir string
	ListModels  bool
	LogLevel    string
	LogFormat   string

	// generate flags
	PDFFile     string
	AudioFile   string
	SessionID   string
	OutputDir   string
	BatchFile   string
	Concurrency int

	// Deck flags
	APKG     bool
	DeckName string

	// Formatter flags
	Formatter       string
	FormatterModel  string
	FetchReadings   bool
	FuriganaReserve bool

	// Audio segmentation flags
	FFmpegPath      string
	MinSilenceMs    int
	SilenceThreshDB float64
	KeepSilenceMs   int
	FadeMs          int

	// serve and sweep flags
	Port           int
	MaxAge         time.Duration
	SweepInterval  time.Duration
	AllowedOrigins []string

	// S3 flags
	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel:        "info",
		LogFormat:       "text",
		Concurrency:     2,
		DeckName:        "Japanese Vocabulary",
		Formatter:       "none",
		MinSilenceMs:    300,
		SilenceThreshDB: -40,
		KeepSilenceMs:   100,
		FadeMs:          30,
		Port:            5000,
		MaxAge:          24 * time.Hour,
		SweepInterval:   time.Hour,
		AllowedOrigins:  []string{"*"},
	}
}
