package anki

import "fmt"

// ClipExtension is the file extension of every audio clip
const ClipExtension = ".mp3"

// Note is the text side of a card before audio is attached
type Note struct {
	Front string // Term with inline [reading] markup
	Back  string // Meaning
}

// Card represents a single Anki flashcard
type Card struct {
	Front     string
	Back      string
	SoundFile string // Media file name, e.g. "001.mp3"
}

// SoundMarker renders the Anki sound reference for the card
func (c Card) SoundMarker() string {
	if c.SoundFile == "" {
		return ""
	}
	return fmt.Sprintf("[sound:%s]", c.SoundFile)
}

// MediaFile is a named audio buffer belonging to a deck
type MediaFile struct {
	Name string
	Data []byte
}

// ClipFilename names the media file of the n-th card (1-based). Both the
// card's sound reference and the media file itself use it.
func ClipFilename(ordinal int) string {
	return fmt.Sprintf("%03d%s", ordinal, ClipExtension)
}
