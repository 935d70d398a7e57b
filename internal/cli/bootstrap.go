package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"codeberg.org/snonux/vocabdeck/internal"
	"codeberg.org/snonux/vocabdeck/internal/audio"
	"codeberg.org/snonux/vocabdeck/internal/formatting"
	"codeberg.org/snonux/vocabdeck/internal/furigana"
	"codeberg.org/snonux/vocabdeck/internal/observe"
	"codeberg.org/snonux/vocabdeck/internal/phonetic"
	"codeberg.org/snonux/vocabdeck/internal/processor"
	"codeberg.org/snonux/vocabdeck/internal/session"
)

// Dependencies holds everything the generate, serve and sweep commands need
type Dependencies struct {
	Store     *session.Store
	Processor *processor.Processor
	Provider  *observe.Provider
	Metrics   *observe.Metrics
}

// Close flushes the metric exporter
func (d *Dependencies) Close(ctx context.Context) error {
	if d.Provider == nil {
		return nil
	}
	return d.Provider.Shutdown(ctx)
}

// NewDependencies wires the pipeline from cfg. Progress lines go to progress.
func NewDependencies(ctx context.Context, cfg *Config, logger *slog.Logger, progress io.Writer) (*Dependencies, error) {
	store, err := session.NewStore(cfg.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	logger.Info("session store ready", slog.String("root", store.Root()))

	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "vocabdeck",
		ServiceVersion: internal.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("init metrics provider: %w", err)
	}
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	ffmpeg := audio.NewFFmpeg(cfg.FFmpegPath)
	if err := ffmpeg.IsAvailable(); err != nil {
		// Generation fails with ErrSegmentation later; serve and sweep still work
		logger.Warn("ffmpeg unavailable", slog.String("error", err.Error()))
	}
	segmenter := audio.NewSegmenter(ffmpeg, ffmpeg, audio.SegmentOpts{
		MinSilence:      cfg.MinSilence,
		SilenceThreshDB: cfg.SilenceThreshDB,
		KeepSilence:     cfg.KeepSilence,
		Fade:            cfg.Fade,
	})

	aligner := furigana.NewGreedyAligner(newOracle(logger), alignerOptions(cfg)...)

	opts := []processor.Option{
		processor.WithLogger(logger),
		processor.WithMetrics(metrics),
		processor.WithProgress(progress),
	}
	if cfg.APKG {
		opts = append(opts, processor.WithAPKG(cfg.DeckName))
	}

	completer, err := formatting.NewCompleter(ctx, formatting.Config{
		Provider:  cfg.Formatter,
		Model:     cfg.FormatterModel,
		OpenAIKey: cfg.OpenAIKey,
		GeminiKey: cfg.GeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create formatter: %w", err)
	}
	if completer != nil {
		opts = append(opts, processor.WithFormatter(formatting.NewFormatter(completer)))
		logger.Info("formatter enabled", slog.String("provider", completer.Name()))
	}

	if cfg.FetchReadings {
		filler, err := readingFiller(cfg, completer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, processor.WithReadingFiller(filler))
	}

	if cfg.S3Enabled() {
		publisher, err := session.NewS3Publisher(ctx, session.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 publisher: %w", err)
		}
		opts = append(opts, processor.WithPublisher(publisher))
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
	}

	return &Dependencies{
		Store:     store,
		Processor: processor.NewProcessor(store, segmenter, aligner, opts...),
		Provider:  provider,
		Metrics:   metrics,
	}, nil
}

// newOracle loads the tokenizer once. Without it every term is treated as
// non-atomic, which only affects multi-kanji words.
func newOracle(logger *slog.Logger) furigana.Oracle {
	oracle, err := furigana.NewKagomeOracle()
	if err != nil {
		logger.Warn("tokenizer unavailable, furigana falls back to per-character alignment",
			slog.String("error", err.Error()))
		return furigana.NeverAtomic
	}
	return oracle
}

func alignerOptions(cfg *Config) []furigana.Option {
	if cfg.FuriganaReserve {
		return []furigana.Option{furigana.WithReserve()}
	}
	return nil
}

// readingFiller prefers OpenAI for reading lookups and falls back to the
// formatter's provider
func readingFiller(cfg *Config, completer formatting.Completer) (processor.ReadingFiller, error) {
	if cfg.OpenAIKey != "" {
		return phonetic.NewFetcher(cfg.OpenAIKey), nil
	}
	if completer != nil {
		return phonetic.NewFetcherWith(completer), nil
	}
	return nil, fmt.Errorf("reading lookup needs OPENAI_API_KEY or a configured formatter")
}
