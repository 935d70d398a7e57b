package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/vocabdeck/internal"
)

// CreateRootCommand creates and configures the root cobra command with the
// generate, serve and sweep subcommands
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vocabdeck",
		Short: "Japanese vocabulary to Anki deck generator",
		Long: `vocabdeck turns a numbered Japanese vocabulary list (PDF) and a
recording of the list being read aloud into an Anki deck with furigana
and one audio clip per card.

Examples:
  vocabdeck generate --pdf list.pdf --audio list.mp3   # Build a deck once
  vocabdeck generate --batch sessions.txt              # Build several decks
  vocabdeck serve --port 5000                          # Run the HTTP API
  vocabdeck sweep --max-age 24h                        # Remove old sessions
  vocabdeck --list-models                              # Show formatter models`,
		Version:      internal.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ListModels {
				return runListModels(cmd)
			}
			return cmd.Help()
		},
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newGenerateCommand(flags),
		newServeCommand(flags),
		newSweepCommand(flags),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	// Global flags
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.vocabdeck.yaml)")
	pf.StringVar(&flags.SessionsDir, "sessions-dir", "", "Directory holding session data (default: $TMPDIR/vocabdeck)")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text or json")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List OpenAI chat models usable by the formatter")

	// Deck flags
	pf.BoolVar(&flags.APKG, "apkg", false, "Also write an APKG package into the archive")
	pf.StringVar(&flags.DeckName, "deck-name", flags.DeckName, "Deck name for APKG export")

	// Formatter flags
	pf.StringVar(&flags.Formatter, "formatter", flags.Formatter, "Card formatter: none, openai or gemini")
	pf.StringVar(&flags.FormatterModel, "formatter-model", "", "Model used by the formatter (default: provider default)")
	pf.BoolVar(&flags.FetchReadings, "fetch-readings", false, "Look up readings for entries listed without one")
	pf.BoolVar(&flags.FuriganaReserve, "furigana-reserve", false, "Reserve a kana for every remaining kanji when aligning readings")

	// Audio flags
	pf.StringVar(&flags.FFmpegPath, "ffmpeg", "", "Path to the ffmpeg binary (default: ffmpeg from PATH)")
	pf.IntVar(&flags.MinSilenceMs, "min-silence-ms", flags.MinSilenceMs, "Shortest pause in milliseconds that separates two terms")
	pf.Float64Var(&flags.SilenceThreshDB, "silence-thresh-db", flags.SilenceThreshDB, "Level in dBFS below which audio counts as silent")
	pf.IntVar(&flags.KeepSilenceMs, "keep-silence-ms", flags.KeepSilenceMs, "Silence in milliseconds kept around every clip")
	pf.IntVar(&flags.FadeMs, "fade-ms", flags.FadeMs, "Fade in and out in milliseconds applied to every clip")

	// Storage flags
	pf.DurationVar(&flags.MaxAge, "max-age", flags.MaxAge, "Sessions older than this are removed by sweeps")
	pf.StringVar(&flags.S3Bucket, "s3-bucket", "", "Upload finished archives to this S3 bucket")
	pf.StringVar(&flags.S3Region, "s3-region", "", "Region of the S3 bucket")
	pf.StringVar(&flags.S3Prefix, "s3-prefix", "", "Key prefix for uploaded archives")
	pf.StringVar(&flags.S3Endpoint, "s3-endpoint", "", "Custom S3 endpoint, e.g. for MinIO")

	bindFlagsToViper(pf)
}

func bindFlagsToViper(fs *pflag.FlagSet) {
	bindings := map[string]string{
		"sessions.dir":            "sessions-dir",
		"sessions.max_age":        "max-age",
		"log.level":               "log-level",
		"log.format":              "log-format",
		"anki.apkg":               "apkg",
		"anki.deck_name":          "deck-name",
		"formatter.provider":      "formatter",
		"formatter.model":         "formatter-model",
		"formatter.readings":      "fetch-readings",
		"furigana.reserve":        "furigana-reserve",
		"audio.ffmpeg":            "ffmpeg",
		"audio.min_silence_ms":    "min-silence-ms",
		"audio.silence_thresh_db": "silence-thresh-db",
		"audio.keep_silence_ms":   "keep-silence-ms",
		"audio.fade_ms":           "fade-ms",
		"storage.s3_bucket":       "s3-bucket",
		"storage.s3_region":       "s3-region",
		"storage.s3_prefix":       "s3-prefix",
		"storage.s3_endpoint":     "s3-endpoint",
		"batch.concurrency":       "concurrency",
		"server.port":             "port",
		"server.allowed_origins":  "allowed-origins",
		"sessions.sweep_interval": "sweep-interval",
	}
	for key, name := range bindings {
		if f := fs.Lookup(name); f != nil {
			viper.BindPFlag(key, f)
		}
	}
}

func newGenerateCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build an Anki archive from a PDF and a recording",
		Long: `generate extracts the vocabulary from the PDF, cuts the recording at
its pauses and writes anki_output_<session>.zip with the CSV deck and one
numbered clip per card.

Without --pdf and --audio, --session regenerates an existing session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.PDFFile, "pdf", "", "Vocabulary list PDF")
	cmd.Flags().StringVar(&flags.AudioFile, "audio", "", "Recording of the list being read aloud")
	cmd.Flags().StringVar(&flags.SessionID, "session", "", "Session id (default: generated)")
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", "", "Copy the finished archive into this directory")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Process the sessions listed in this file")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", flags.Concurrency, "Sessions generated in parallel in batch mode")
	bindFlagsToViper(cmd.Flags())

	return cmd
}

func newServeCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.Port, "port", "p", flags.Port, "Port to listen on")
	cmd.Flags().DurationVar(&flags.SweepInterval, "sweep-interval", flags.SweepInterval, "How often old sessions are swept (0 disables)")
	cmd.Flags().StringSliceVar(&flags.AllowedOrigins, "allowed-origins", flags.AllowedOrigins, "Allowed CORS origins")
	bindFlagsToViper(cmd.Flags())

	return cmd
}

func newSweepCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove sessions older than --max-age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, flags)
		},
	}
}
