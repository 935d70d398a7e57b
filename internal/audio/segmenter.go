package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrSegmentation is returned when a recording cannot be read, decoded or cut
var ErrSegmentation = errors.New("audio segmentation failed")

// Clip is one spoken term cut from the recording
type Clip struct {
	Index    int // 1-based ordinal in recording order
	Data     []byte
	Start    time.Duration // Offset of the (padded) span in the source
	Duration time.Duration
}

// Silence is a quiet stretch reported by a Prober
type Silence struct {
	Start time.Duration
	End   time.Duration
}

// Span is a stretch of the recording to cut into a clip
type Span struct {
	Start time.Duration
	End   time.Duration
}

// Length returns the span duration
func (s Span) Length() time.Duration {
	return s.End - s.Start
}

// Prober inspects a recording
type Prober interface {
	// Duration returns the total length of the recording
	Duration(ctx context.Context, path string) (time.Duration, error)

	// Silences lists silent stretches of at least minSilence below threshDB
	Silences(ctx context.Context, path string, minSilence time.Duration, threshDB float64) ([]Silence, error)
}

// Encoder renders one span of a recording into a standalone clip
type Encoder interface {
	Encode(ctx context.Context, path string, span Span, fade time.Duration) ([]byte, error)
}

// SegmentOpts configures silence detection and clip rendering
type SegmentOpts struct {
	MinSilence      time.Duration // Shortest pause that separates two terms
	SilenceThreshDB float64       // Level in dBFS below which audio counts as silent
	KeepSilence     time.Duration // Padding kept on each side of a spoken span
	Fade            time.Duration // Fade-in and fade-out applied to every clip
}

// DefaultSegmentOpts returns the settings used for classroom recordings
func DefaultSegmentOpts() SegmentOpts {
	return SegmentOpts{
		MinSilence:      300 * time.Millisecond,
		SilenceThreshDB: -40,
		KeepSilence:     100 * time.Millisecond,
		Fade:            30 * time.Millisecond,
	}
}

// Segmenter splits a recording into at most an expected number of clips
type Segmenter struct {
	prober  Prober
	encoder Encoder
	opts    SegmentOpts
}

// NewSegmenter creates a segmenter. Zero-valued options fall back to the
// defaults, except KeepSilence and Fade where zero is meaningful.
func NewSegmenter(prober Prober, encoder Encoder, opts SegmentOpts) *Segmenter {
	defaults := DefaultSegmentOpts()
	if opts.MinSilence <= 0 {
		opts.MinSilence = defaults.MinSilence
	}
	if opts.SilenceThreshDB == 0 {
		opts.SilenceThreshDB = defaults.SilenceThreshDB
	}
	if opts.KeepSilence < 0 {
		opts.KeepSilence = 0
	}
	if opts.Fade < 0 {
		opts.Fade = 0
	}

	return &Segmenter{
		prober:  prober,
		encoder: encoder,
		opts:    opts,
	}
}

// Options returns the effective segmentation settings
func (s *Segmenter) Options() SegmentOpts {
	return s.opts
}

// Segment cuts the recording at inputPath into clips in chronological order.
// When the recording holds more spoken spans than expected, the trailing
// spans are dropped. When it holds fewer, fewer clips are returned and the
// caller decides how to reconcile the counts.
func (s *Segmenter) Segment(ctx context.Context, inputPath string, expected int) ([]Clip, error) {
	if expected <= 0 {
		return nil, nil
	}

	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}

	total, err := s.prober.Duration(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read duration: %w", ErrSegmentation, err)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: recording %s has no audio", ErrSegmentation, inputPath)
	}

	silences, err := s.prober.Silences(ctx, inputPath, s.opts.MinSilence, s.opts.SilenceThreshDB)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to detect silences: %w", ErrSegmentation, err)
	}

	spans := SpeechSpans(silences, total, s.opts.KeepSilence)
	if len(spans) > expected {
		spans = spans[:expected]
	}

	clips := make([]Clip, 0, len(spans))
	for i, span := range spans {
		data, err := s.encoder.Encode(ctx, inputPath, span, s.opts.Fade)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: failed to encode clip %d: %w", ErrSegmentation, i+1, err)
		}

		clips = append(clips, Clip{
			Index:    i + 1,
			Data:     data,
			Start:    span.Start,
			Duration: span.Length(),
		})
	}

	return clips, nil
}
