package anki

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// GeneratorOptions configures the Anki export
type GeneratorOptions struct {
	OutputPath     string // Output CSV file path
	MediaFolder    string // Folder the audio clips are written to
	IncludeHeaders bool   // Include a CSV header row
}

// DefaultGeneratorOptions returns the layout of a session output directory
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     "anki_cards.csv",
		MediaFolder:    "audio",
		IncludeHeaders: false,
	}
}

// Generator creates Anki-compatible import files
type Generator struct {
	options *GeneratorOptions
	cards   []Card
	media   []MediaFile
}

// NewGenerator creates a new Anki generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	return &Generator{
		options: options,
		cards:   make([]Card, 0),
	}
}

// AddCard adds a card to the collection
func (g *Generator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// AddMedia adds an audio file referenced by the cards
func (g *Generator) AddMedia(file MediaFile) {
	g.media = append(g.media, file)
}

// AddResult adds all cards and media of an assembled deck
func (g *Generator) AddResult(result Result) {
	for _, c := range result.Cards {
		g.AddCard(c)
	}
	for _, m := range result.Media {
		g.AddMedia(m)
	}
}

// Media returns the collected media files
func (g *Generator) Media() []MediaFile {
	return g.media
}

// Options returns the generator options
func (g *Generator) Options() *GeneratorOptions {
	return g.options
}

// WriteCSV writes one "front,back,[sound:NNN.mp3]" row per card. Fields are
// quoted when they contain the delimiter, quotes or line breaks.
func (g *Generator) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if g.options.IncludeHeaders {
		if err := writer.Write([]string{"Front", "Back", "Audio"}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, card := range g.cards {
		if err := writer.Write([]string{card.Front, card.Back, card.SoundMarker()}); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// GenerateCSV creates the CSV file for Anki import at OutputPath
func (g *Generator) GenerateCSV() error {
	if err := os.MkdirAll(filepath.Dir(g.options.OutputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := g.WriteCSV(file); err != nil {
		return err
	}
	return file.Close()
}

// WriteMedia writes every media file into MediaFolder and returns the paths
func (g *Generator) WriteMedia() ([]string, error) {
	if err := os.MkdirAll(g.options.MediaFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	paths := make([]string, 0, len(g.media))
	for _, m := range g.media {
		path := filepath.Join(g.options.MediaFolder, filepath.Base(m.Name))
		if err := os.WriteFile(path, m.Data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write media file %s: %w", m.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// GenerateAPKG creates a proper .apkg file for Anki import
func (g *Generator) GenerateAPKG(outputPath, deckName string) error {
	apkgGen := NewAPKGGenerator(deckName)

	for _, card := range g.cards {
		apkgGen.AddCard(card)
	}
	for _, m := range g.media {
		apkgGen.AddMedia(m)
	}

	return apkgGen.GenerateAPKG(outputPath)
}
