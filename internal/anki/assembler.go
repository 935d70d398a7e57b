package anki

import (
	"fmt"

	"codeberg.org/snonux/vocabdeck/internal/audio"
	"codeberg.org/snonux/vocabdeck/internal/furigana"
	"codeberg.org/snonux/vocabdeck/internal/vocab"
)

// Mismatch records differing entry and clip counts
type Mismatch struct {
	Entries int
	Clips   int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%d entries vs %d clips", m.Entries, m.Clips)
}

// Result is an assembled deck
type Result struct {
	Cards    []Card
	Media    []MediaFile
	Mismatch *Mismatch // nil when the counts agreed
}

// NotesFromEntries renders each entry's front with the aligner
func NotesFromEntries(entries []vocab.Entry, aligner furigana.Aligner) []Note {
	notes := make([]Note, len(entries))
	for i, e := range entries {
		notes[i] = Note{
			Front: aligner.Align(e.Term, e.Reading),
			Back:  e.Meaning,
		}
	}
	return notes
}

// Assemble pairs entries with clips by position
func Assemble(entries []vocab.Entry, clips []audio.Clip, aligner furigana.Aligner) Result {
	return AssembleNotes(NotesFromEntries(entries, aligner), clips)
}

// AssembleNotes pairs notes with clips by position. Neither sequence is
// reordered; the longer one is truncated and the difference is recorded.
func AssembleNotes(notes []Note, clips []audio.Clip) Result {
	n := min(len(notes), len(clips))

	result := Result{
		Cards: make([]Card, 0, n),
		Media: make([]MediaFile, 0, n),
	}
	if len(notes) != len(clips) {
		result.Mismatch = &Mismatch{Entries: len(notes), Clips: len(clips)}
	}

	for i := 0; i < n; i++ {
		name := ClipFilename(i + 1)
		result.Cards = append(result.Cards, Card{
			Front:     notes[i].Front,
			Back:      notes[i].Back,
			SoundFile: name,
		})
		result.Media = append(result.Media, MediaFile{Name: name, Data: clips[i].Data})
	}

	return result
}
