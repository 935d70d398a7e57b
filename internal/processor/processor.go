package processor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"codeberg.org/snonux/vocabdeck/internal/anki"
	"codeberg.org/snonux/vocabdeck/internal/archive"
	"codeberg.org/snonux/vocabdeck/internal/audio"
	"codeberg.org/snonux/vocabdeck/internal/formatting"
	"codeberg.org/snonux/vocabdeck/internal/furigana"
	"codeberg.org/snonux/vocabdeck/internal/observe"
	"codeberg.org/snonux/vocabdeck/internal/pdftext"
	"codeberg.org/snonux/vocabdeck/internal/session"
	"codeberg.org/snonux/vocabdeck/internal/vocab"
)

// Segmenter splits a recording into at most expected clips
type Segmenter interface {
	Segment(ctx context.Context, inputPath string, expected int) ([]audio.Clip, error)
}

// Formatter turns entries into card notes with an external collaborator
type Formatter interface {
	Name() string
	Format(ctx context.Context, entries []vocab.Entry) (formatting.Result, error)
}

// ReadingFiller looks up readings for entries extracted without one
type ReadingFiller interface {
	FillReadings(ctx context.Context, entries []vocab.Entry) ([]vocab.Entry, int, error)
}

// Publisher uploads a finished session archive and returns its URL
type Publisher interface {
	Publish(ctx context.Context, s *session.Session) (string, error)
}

// Report summarises one generation
type Report struct {
	SessionID       string
	Entries         int
	Notes           int
	Clips           int
	Cards           int
	MissingReadings int
	Mismatch        *anki.Mismatch
	Drift           []formatting.Drift
	CSVPath         string
	APKGPath        string // Empty unless APKG export is enabled
	ZipPath         string
	URL             string // Set when the archive was published
}

// Option configures a Processor
type Option func(*Processor)

// WithFormatter routes the fronts and backs through an external formatter
// instead of the aligner
func WithFormatter(f Formatter) Option {
	return func(p *Processor) { p.formatter = f }
}

// WithReadingFiller fills missing readings before alignment
func WithReadingFiller(r ReadingFiller) Option {
	return func(p *Processor) { p.readings = r }
}

// WithPublisher uploads every finished archive
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// WithAPKG additionally writes an Anki package with the given deck name
func WithAPKG(deckName string) Option {
	return func(p *Processor) {
		p.apkg = true
		p.deckName = deckName
	}
}

// WithExtractor replaces the default vocabulary extractor
func WithExtractor(e *vocab.Extractor) Option {
	return func(p *Processor) { p.extractor = e }
}

// WithTextSource replaces the PDF text reader
func WithTextSource(fn func(path string) (string, error)) Option {
	return func(p *Processor) { p.readText = fn }
}

// WithMetrics records generations to m
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the logger for warnings
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithProgress sets where progress lines are printed. Use io.Discard to
// silence them.
func WithProgress(w io.Writer) Option {
	return func(p *Processor) { p.out = w }
}

// Processor runs the deck pipeline for sessions of a store
type Processor struct {
	store     *session.Store
	segmenter Segmenter
	aligner   furigana.Aligner
	extractor *vocab.Extractor
	readText  func(path string) (string, error)
	formatter Formatter
	readings  ReadingFiller
	publisher Publisher
	apkg      bool
	deckName  string
	metrics   *observe.Metrics
	logger    *slog.Logger
	out       io.Writer
}

// NewProcessor creates a processor over the given store
func NewProcessor(store *session.Store, segmenter Segmenter, aligner furigana.Aligner, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		segmenter: segmenter,
		aligner:   aligner,
		extractor: vocab.NewExtractor(),
		readText:  pdftext.ExtractFile,
		logger:    slog.Default(),
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the session store the processor works on
func (p *Processor) Store() *session.Store {
	return p.store
}

// Import copies a PDF and a recording from the filesystem into the session
// id, creating the session. An empty id creates a new session.
func (p *Processor) Import(ctx context.Context, id, pdfPath, audioPath string) (*session.Session, error) {
	var (
		s   *session.Session
		err error
	)
	if id == "" {
		s, err = p.store.Create(ctx)
	} else {
		s, err = p.store.Open(id)
	}
	if err != nil {
		return nil, err
	}

	inputs := []struct{ name, path string }{
		{session.PDFFile, pdfPath},
		{session.AudioFile, audioPath},
	}
	for _, in := range inputs {
		if err := importFile(ctx, s, in.name, in.path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func importFile(ctx context.Context, s *session.Session, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrInputMissing, err)
	}
	defer f.Close()

	if _, err := s.SaveInput(ctx, name, f); err != nil {
		return err
	}
	return nil
}

// Run generates the deck of session id. Any previous output of the session
// is replaced.
func (p *Processor) Run(ctx context.Context, id string) (report *Report, err error) {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.ActiveGenerations.Add(ctx, 1)
		defer func() {
			p.metrics.ActiveGenerations.Add(ctx, -1)
			status := "ok"
			if err != nil {
				status = "error"
			}
			p.metrics.RecordSession(ctx, status, time.Since(start))
		}()
	}

	s, err := p.store.Lookup(id)
	if err != nil {
		return nil, err
	}
	if err := s.RequireInputs(); err != nil {
		return nil, err
	}
	if err := s.ResetOutputs(); err != nil {
		return nil, err
	}

	fmt.Fprintf(p.out, "\nProcessing session %s\n", s.ID)
	report = &Report{SessionID: s.ID}

	fmt.Fprintf(p.out, "  Extracting vocabulary...\n")
	stageStart := time.Now()
	text, err := p.readText(s.PDFPath())
	if err != nil {
		return nil, err
	}
	entries := p.extractor.Extract(text)
	p.recordStage(ctx, "extract", stageStart)
	report.Entries = len(entries)
	fmt.Fprintf(p.out, "  Found %d entries\n", len(entries))

	if p.readings != nil && len(entries) > 0 {
		entries, report.MissingReadings, err = p.readings.FillReadings(ctx, entries)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch readings: %w", err)
		}
		if report.MissingReadings > 0 {
			fmt.Fprintf(p.out, "  Warning: no reading found for %d entries\n", report.MissingReadings)
		}
	}

	notes, err := p.notes(ctx, entries, report)
	if err != nil {
		return nil, err
	}
	report.Notes = len(notes)

	fmt.Fprintf(p.out, "  Splitting audio into %d clips...\n", len(notes))
	stageStart = time.Now()
	clips, err := p.segmenter.Segment(ctx, s.AudioPath(), len(notes))
	if err != nil {
		return nil, err
	}
	p.recordStage(ctx, "segment", stageStart)
	report.Clips = len(clips)

	result := anki.AssembleNotes(notes, clips)
	report.Cards = len(result.Cards)
	report.Mismatch = result.Mismatch
	if result.Mismatch != nil {
		p.logger.Warn("entry and clip counts differ, deck truncated",
			"session", s.ID,
			"entries", result.Mismatch.Entries,
			"clips", result.Mismatch.Clips,
		)
		fmt.Fprintf(p.out, "  Warning: %s, keeping %d cards\n", result.Mismatch, report.Cards)
		if p.metrics != nil {
			p.metrics.Mismatches.Add(ctx, 1)
		}
	}

	if err := p.writeDeck(s, result, report); err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.Cards.Add(ctx, int64(report.Cards))
	}

	if p.publisher != nil {
		url, err := p.publisher.Publish(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed to publish archive: %w", err)
		}
		report.URL = url
		fmt.Fprintf(p.out, "  Published: %s\n", url)
	}

	fmt.Fprintf(p.out, "  Created %d cards: %s\n", report.Cards, report.ZipPath)
	return report, nil
}

// notes renders the card fronts and backs, either locally with the
// aligner or through the formatter
func (p *Processor) notes(ctx context.Context, entries []vocab.Entry, report *Report) ([]anki.Note, error) {
	if p.formatter == nil || len(entries) == 0 {
		return anki.NotesFromEntries(entries, p.aligner), nil
	}

	fmt.Fprintf(p.out, "  Formatting with %s...\n", p.formatter.Name())
	stageStart := time.Now()
	result, err := p.formatter.Format(ctx, entries)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordFormatterRequest(ctx, p.formatter.Name(), "error")
		}
		return nil, err
	}
	p.recordStage(ctx, "format", stageStart)
	if p.metrics != nil {
		p.metrics.RecordFormatterRequest(ctx, p.formatter.Name(), "ok")
		p.metrics.FormatterDrift.Add(ctx, int64(len(result.Drift)))
	}

	for _, d := range result.Drift {
		p.logger.Warn("formatted front drifted from source term",
			"session", report.SessionID,
			"position", d.Position,
			"term", d.Term,
			"front", d.Front,
			"score", d.Score,
		)
	}
	report.Drift = result.Drift
	return result.Notes, nil
}

// writeDeck writes the CSV, the clips, the optional APKG and the zip
func (p *Processor) writeDeck(s *session.Session, result anki.Result, report *Report) error {
	gen := anki.NewGenerator(&anki.GeneratorOptions{
		OutputPath:  s.CSVPath(),
		MediaFolder: s.AudioDir(),
	})
	gen.AddResult(result)

	if err := gen.GenerateCSV(); err != nil {
		return err
	}
	if _, err := gen.WriteMedia(); err != nil {
		return err
	}
	report.CSVPath = s.CSVPath()

	entries := []archive.Entry{{Name: session.CSVFile, Path: s.CSVPath()}}

	if p.apkg {
		if err := gen.GenerateAPKG(s.APKGPath(), p.deckName); err != nil {
			return err
		}
		report.APKGPath = s.APKGPath()
		entries = append(entries, archive.Entry{Name: session.APKGFile, Path: s.APKGPath()})
	}

	clips, err := archive.DirEntries(s.AudioDir(), session.AudioDir)
	if err != nil {
		return err
	}
	entries = append(entries, clips...)

	if err := archive.Bundle(s.ZipPath(), entries...); err != nil {
		return err
	}
	report.ZipPath = s.ZipPath()
	return nil
}

func (p *Processor) recordStage(ctx context.Context, stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStage(ctx, stage, time.Since(start))
	}
}
