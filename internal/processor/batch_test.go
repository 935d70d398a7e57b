package processor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/vocabdeck/internal/batch"
	"codeberg.org/snonux/vocabdeck/internal/session"
	"codeberg.org/snonux/vocabdeck/internal/testutil"
)

func TestGenerateBatch(t *testing.T) {
	p, f := newFixture(t, gen.GenerateVocabText(2), WithProgress(io.Discard))
	testutil.CreateTestSession(t, f.store.Root(), "a")
	testutil.CreateTestSession(t, f.store.Root(), "b")
	f.segmenter.On("Segment", mock.Anything, mock.Anything, 2).Return(gen.GenerateClips(2), nil)

	jobs := []batch.Job{
		{SessionID: "a"},
		{SessionID: "missing"},
		{SessionID: "b"},
	}

	results, err := p.GenerateBatch(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, results[0].Report.Cards)
	assert.ErrorIs(t, results[1].Err, session.ErrInputMissing)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "b", results[2].Report.SessionID)
}

func TestGenerateBatch_Cancelled(t *testing.T) {
	p, f := newFixture(t, gen.GenerateVocabText(1), WithProgress(io.Discard))
	testutil.CreateTestSession(t, f.store.Root(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.GenerateBatch(ctx, []batch.Job{{SessionID: "a"}}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	f.segmenter.AssertNotCalled(t, "Segment", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_ImportsInputs(t *testing.T) {
	p, f := newFixture(t, gen.GenerateVocabText(1), WithProgress(io.Discard))
	f.segmenter.On("Segment", mock.Anything, mock.Anything, 1).Return(gen.GenerateClips(1), nil)

	dir := t.TempDir()
	testutil.CreateTestFile(t, filepath.Join(dir, "l1.pdf"), []byte("pdf"))
	testutil.CreateTestFile(t, filepath.Join(dir, "l1.mp3"), []byte("mp3"))
	batchFile := filepath.Join(dir, "sessions.txt")
	require.NoError(t, os.WriteFile(batchFile, []byte("lesson-1 = l1.pdf, l1.mp3\n"), 0644))

	results, err := p.ProcessBatch(context.Background(), batchFile, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	assert.Equal(t, "lesson-1", results[0].Report.SessionID)
	testutil.AssertFileExists(t, filepath.Join(f.store.Root(), "lesson-1", "anki_output_lesson-1.zip"))
}
