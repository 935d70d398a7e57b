package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Input and output file names inside a session directory.
const (
	PDFFile   = "vocab.pdf"
	AudioFile = "vocab.mp3"
	AudioDir  = "audio"
	CSVFile   = "anki_cards.csv"
	APKGFile  = "anki_cards.apkg"
)

var (
	// ErrInvalidID is returned for identifiers that are empty or could
	// escape the store root.
	ErrInvalidID = errors.New("invalid session id")

	// ErrInputMissing is returned when the PDF or the recording has not
	// been uploaded yet.
	ErrInputMissing = errors.New("missing PDF or audio")

	// ErrNotFound is returned by Lookup for sessions that were never
	// created. Nothing has been uploaded to them, so it wraps
	// ErrInputMissing.
	ErrNotFound = fmt.Errorf("%w: session not found", ErrInputMissing)

	// ErrUnknownInput is returned by SaveInput for names other than
	// PDFFile and AudioFile.
	ErrUnknownInput = errors.New("unknown input file")
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidID reports whether id can be used as a session directory name.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// Store is a directory of session directories.
type Store struct {
	root string
}

// NewStore creates the store root if it doesn't exist. An empty root
// falls back to a "vocabdeck" directory below os.TempDir().
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "vocabdeck")
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}

	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Create starts a new session with a random identifier.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	return s.Open(uuid.NewString())
}

// Open returns the session with the given identifier, creating its
// directory on first use. Clients may pick their own identifiers.
func (s *Store) Open(id string) (*Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	return &Session{ID: id, Dir: dir}, nil
}

// Lookup returns an existing session without creating anything.
func (s *Store) Lookup(id string) (*Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("stat session %s: %w", id, err)
	}

	return &Session{ID: id, Dir: dir}, nil
}

// Remove deletes a session directory and everything in it. Removing a
// session that doesn't exist is not an error.
func (s *Store) Remove(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return fmt.Errorf("remove session %s: %w", id, err)
	}
	return nil
}

// List returns the identifiers of all sessions in the store, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read session root: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() && ValidID(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Sweep removes every session whose directory hasn't been modified for
// longer than maxAge and returns the removed identifiers. A non-positive
// maxAge removes nothing.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	if maxAge <= 0 {
		return nil, nil
	}

	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		info, err := os.Stat(filepath.Join(s.root, id))
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := s.Remove(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}

	return removed, nil
}

// Session is one working directory.
type Session struct {
	ID  string
	Dir string
}

func (s *Session) PDFPath() string   { return filepath.Join(s.Dir, PDFFile) }
func (s *Session) AudioPath() string { return filepath.Join(s.Dir, AudioFile) }
func (s *Session) AudioDir() string  { return filepath.Join(s.Dir, AudioDir) }
func (s *Session) CSVPath() string   { return filepath.Join(s.Dir, CSVFile) }
func (s *Session) APKGPath() string  { return filepath.Join(s.Dir, APKGFile) }

// ZipName is the download name of the session archive.
func (s *Session) ZipName() string {
	return fmt.Sprintf("anki_output_%s.zip", s.ID)
}

// ZipPath is where the session archive is written.
func (s *Session) ZipPath() string {
	return filepath.Join(s.Dir, s.ZipName())
}

// SaveInput stores an uploaded input under name, which must be PDFFile
// or AudioFile. An existing upload is replaced.
func (s *Session) SaveInput(ctx context.Context, name string, r io.Reader) (string, error) {
	if name != PDFFile && name != AudioFile {
		return "", fmt.Errorf("%w: %s", ErrUnknownInput, name)
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.Dir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("store upload file: %w", err)
	}

	return path, nil
}

// RequireInputs returns ErrInputMissing unless both inputs are present.
func (s *Session) RequireInputs() error {
	for _, path := range []string{s.PDFPath(), s.AudioPath()} {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: %s", ErrInputMissing, filepath.Base(path))
		}
	}
	return nil
}

// ResetOutputs removes the outputs of a previous run so a regenerated
// deck never mixes clips from two runs.
func (s *Session) ResetOutputs() error {
	for _, path := range []string{s.AudioDir(), s.CSVPath(), s.APKGPath(), s.ZipPath()} {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("reset session outputs: %w", err)
		}
	}
	return nil
}
