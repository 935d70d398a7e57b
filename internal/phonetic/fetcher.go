package phonetic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/snonux/vocabdeck/internal/formatting"
	"codeberg.org/snonux/vocabdeck/internal/furigana"
	"codeberg.org/snonux/vocabdeck/internal/vocab"
)

// ErrNotKana is returned when the model answers with something other than a
// kana reading
var ErrNotKana = errors.New("reply is not a kana reading")

// Completer is the model call the fetcher needs
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Fetcher handles fetching readings for Japanese terms
type Fetcher struct {
	completer Completer
	timeout   time.Duration
}

// NewFetcher creates a fetcher backed by OpenAI
func NewFetcher(apiKey string) *Fetcher {
	return NewFetcherWith(formatting.NewOpenAICompleter(apiKey, ""))
}

// NewFetcherWith creates a fetcher around any completer
func NewFetcherWith(completer Completer) *Fetcher {
	return &Fetcher{
		completer: completer,
		timeout:   30 * time.Second,
	}
}

// FetchReading asks for the hiragana reading of term
func (f *Fetcher) FetchReading(ctx context.Context, term string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Give the standard hiragana reading of the Japanese word '%s'. "+
		"Respond with only the reading in hiragana, no romaji, no punctuation, nothing else.", term)

	reply, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to fetch reading for %s: %w", term, err)
	}

	reading := strings.Trim(strings.TrimSpace(reply), "「」\"'.。")
	if reading == "" || !furigana.AllKana(reading) {
		return "", fmt.Errorf("%w: %q", ErrNotKana, reply)
	}
	return reading, nil
}

// FillReadings returns a copy of entries where every entry that has kanji
// but no reading got one. Entries whose lookup fails keep an empty reading;
// their count is returned. Only a cancelled context aborts the run.
func (f *Fetcher) FillReadings(ctx context.Context, entries []vocab.Entry) ([]vocab.Entry, int, error) {
	out := make([]vocab.Entry, len(entries))
	copy(out, entries)

	failed := 0
	for i, e := range out {
		if e.HasReading() || !furigana.HasKanji(e.Term) {
			continue
		}

		reading, err := f.FetchReading(ctx, e.Term)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, failed, ctxErr
			}
			failed++
			continue
		}
		out[i].Reading = reading
	}

	return out, failed, nil
}
