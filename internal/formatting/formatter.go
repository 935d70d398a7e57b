package formatting

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/sony/gobreaker"

	"codeberg.org/snonux/vocabdeck/internal/anki"
	"codeberg.org/snonux/vocabdeck/internal/vocab"
)

var (
	// ErrFailed wraps every formatter failure
	ErrFailed = errors.New("formatter failed")

	// ErrNoUsableLines means the reply held no line with a comma
	ErrNoUsableLines = fmt.Errorf("%w: no usable lines in reply", ErrFailed)
)

const (
	defaultTimeout        = 2 * time.Minute
	defaultDriftThreshold = 0.75
)

var bracketRe = regexp.MustCompile(`\[[^\]]*\]`)

// Drift flags a reply line whose term no longer resembles the source term at
// the same position
type Drift struct {
	Position int // 1-based
	Term     string
	Front    string
	Score    float64
}

// Result holds the parsed reply
type Result struct {
	Notes []anki.Note
	Drift []Drift
}

// Option configures a Formatter
type Option func(*Formatter)

// WithTimeout bounds a single model call
func WithTimeout(d time.Duration) Option {
	return func(f *Formatter) {
		f.timeout = d
	}
}

// WithDriftThreshold sets the Jaro-Winkler similarity below which a line is
// reported as drifted
func WithDriftThreshold(threshold float64) Option {
	return func(f *Formatter) {
		f.driftThreshold = threshold
	}
}

// WithBreakerSettings replaces the circuit breaker settings
func WithBreakerSettings(settings gobreaker.Settings) Option {
	return func(f *Formatter) {
		f.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

// Formatter turns vocabulary entries into deck notes via a language model
type Formatter struct {
	completer      Completer
	breaker        *gobreaker.CircuitBreaker
	timeout        time.Duration
	driftThreshold float64
}

// NewFormatter creates a formatter around completer. After three
// consecutive failures the breaker opens for 30 seconds.
func NewFormatter(completer Completer, opts ...Option) *Formatter {
	f := &Formatter{
		completer:      completer,
		timeout:        defaultTimeout,
		driftThreshold: defaultDriftThreshold,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "formatter-" + completer.Name(),
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the provider behind the formatter
func (f *Formatter) Name() string {
	return f.completer.Name()
}

// Format sends the entries in one prompt and parses the reply. The number
// of notes may differ from the number of entries; the model is trusted to
// keep the order.
func (f *Formatter) Format(ctx context.Context, entries []vocab.Entry) (Result, error) {
	if len(entries) == 0 {
		return Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	reply, err := f.breaker.Execute(func() (interface{}, error) {
		return f.completer.Complete(ctx, BuildPrompt(entries))
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFailed, f.completer.Name(), err)
	}

	notes := ParseReply(reply.(string))
	if len(notes) == 0 {
		return Result{}, ErrNoUsableLines
	}

	return Result{
		Notes: notes,
		Drift: DetectDrift(entries, notes, f.driftThreshold),
	}, nil
}

// BuildPrompt renders the instruction and the "term: meaning" word list
func BuildPrompt(entries []vocab.Entry) string {
	var sb strings.Builder
	sb.WriteString("You are a Japanese teacher creating Anki vocabulary cards. For each word below, output in this exact CSV format:\n")
	sb.WriteString("KANJI[FURIGANA],ENGLISH MEANING\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Put furigana in square brackets after each kanji.\n")
	sb.WriteString("- If the word contains multiple kanji, separate each with a space.\n")
	sb.WriteString("- Do NOT insert a space between kanji and attached hiragana.\n")
	sb.WriteString("- Do NOT include romaji.\n")
	sb.WriteString("- Output exactly one line per word, in the given order.\n")
	sb.WriteString("- Example 1: 努[ど] 力[りょく]する,To make an effort\n")
	sb.WriteString("- Example 2 (ateji): 今日[きょう],Today\n")
	sb.WriteString("\nWords:\n")

	for _, e := range entries {
		if e.Reading != "" {
			fmt.Fprintf(&sb, "%s (%s): %s\n", e.Term, e.Reading, e.Meaning)
		} else {
			fmt.Fprintf(&sb, "%s: %s\n", e.Term, e.Meaning)
		}
	}

	return sb.String()
}

// ParseReply keeps the lines that contain a comma and splits each at its
// first comma into front and back
func ParseReply(reply string) []anki.Note {
	var notes []anki.Note
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		front, back, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}

		front = strings.Trim(strings.TrimSpace(front), `"`)
		back = strings.Trim(strings.TrimSpace(back), `"`)
		if front == "" {
			continue
		}

		notes = append(notes, anki.Note{Front: front, Back: back})
	}
	return notes
}

// StripReadings removes bracketed readings and the spaces between units
func StripReadings(front string) string {
	return strings.ReplaceAll(bracketRe.ReplaceAllString(front, ""), " ", "")
}

// DetectDrift compares each note's bare front with the term at the same
// position and reports the pairs whose similarity falls below threshold
func DetectDrift(entries []vocab.Entry, notes []anki.Note, threshold float64) []Drift {
	var drift []Drift
	for i := 0; i < min(len(entries), len(notes)); i++ {
		front := StripReadings(notes[i].Front)
		score := matchr.JaroWinkler(front, entries[i].Term, false)
		if score < threshold {
			drift = append(drift, Drift{
				Position: i + 1,
				Term:     entries[i].Term,
				Front:    notes[i].Front,
				Score:    score,
			})
		}
	}
	return drift
}
