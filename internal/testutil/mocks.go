package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/stretchr/testify/mock"

	"codeberg.org/snonux/vocabdeck/internal/audio"
	"codeberg.org/snonux/vocabdeck/internal/formatting"
	"codeberg.org/snonux/vocabdeck/internal/session"
	"codeberg.org/snonux/vocabdeck/internal/vocab"
)

// MockSegmenter mocks the audio segmenter
type MockSegmenter struct {
	mock.Mock
}

// Segment mocks splitting a recording
func (m *MockSegmenter) Segment(ctx context.Context, inputPath string, expected int) ([]audio.Clip, error) {
	args := m.Called(ctx, inputPath, expected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audio.Clip), args.Error(1)
}

// MockFormatter mocks the formatting collaborator
type MockFormatter struct {
	mock.Mock
}

// Name returns the provider name
func (m *MockFormatter) Name() string {
	return "mock"
}

// Format mocks reformatting entries
func (m *MockFormatter) Format(ctx context.Context, entries []vocab.Entry) (formatting.Result, error) {
	args := m.Called(ctx, entries)
	return args.Get(0).(formatting.Result), args.Error(1)
}

// MockReadingFiller mocks the reading fetcher
type MockReadingFiller struct {
	mock.Mock
}

// FillReadings mocks filling in missing readings
func (m *MockReadingFiller) FillReadings(ctx context.Context, entries []vocab.Entry) ([]vocab.Entry, int, error) {
	args := m.Called(ctx, entries)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]vocab.Entry), args.Int(1), args.Error(2)
}

// MockPublisher mocks publishing a session archive
type MockPublisher struct {
	mock.Mock
}

// Publish mocks uploading an archive
func (m *MockPublisher) Publish(ctx context.Context, s *session.Session) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

// MockCompleter is a scripted LLM completer. Replies are matched by the
// first key contained in the prompt.
type MockCompleter struct {
	Replies map[string]string
	Errors  map[string]error
	Calls   []string
}

// Name returns the provider name
func (m *MockCompleter) Name() string {
	return "mock"
}

// Complete mocks a chat completion
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	for key, err := range m.Errors {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, reply := range m.Replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("no scripted reply for prompt")
}

// TestDataGenerator generates test data
type TestDataGenerator struct{}

// GenerateVocabText generates n numbered "term (reading) meaning" lines
func (g *TestDataGenerator) GenerateVocabText(n int) string {
	terms := []struct{ term, reading, meaning string }{
		{"今日", "きょう", "today"},
		{"勉強", "べんきょう", "study"},
		{"食べる", "たべる", "to eat"},
		{"学校", "がっこう", "school"},
		{"水", "みず", "water"},
	}

	var sb strings.Builder
	sb.WriteString("Lesson vocabulary\n")
	for i := 0; i < n; i++ {
		t := terms[i%len(terms)]
		fmt.Fprintf(&sb, "%d, %s (%s) %s\n", i+1, t.term, t.reading, t.meaning)
	}
	return sb.String()
}

// GenerateClips generates n clips with distinct audio payloads
func (g *TestDataGenerator) GenerateClips(n int) []audio.Clip {
	clips := make([]audio.Clip, n)
	for i := range clips {
		data := append(g.GenerateAudioData(), byte(i+1))
		clips[i] = audio.Clip{Index: i + 1, Data: data}
	}
	return clips
}

// GenerateAudioData generates mock audio data
func (g *TestDataGenerator) GenerateAudioData() []byte {
	// Simple mock MP3 header
	return []byte{0xFF, 0xFB, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00}
}
