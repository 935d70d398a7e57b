package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one file to place in a bundle. Content comes from Data when it is
// set, otherwise from the file at Path.
type Entry struct {
	Name string // Slash-separated name inside the archive
	Path string
	Data []byte
}

// Bundle writes the entries into a new zip file at zipPath, in the given
// order. A partially written archive is removed on failure.
func Bundle(zipPath string, entries ...Entry) (err error) {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
		if err != nil {
			os.Remove(zipPath)
		}
	}()

	w := zip.NewWriter(zipFile)
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("archive entry without a name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate archive entry: %s", e.Name)
		}
		seen[e.Name] = true

		if err := addEntry(w, e); err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// DirEntries lists the regular files below dir as entries named relative to
// dir, prefixed with prefix, sorted by name
func DirEntries(dir, prefix string) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Name: filepath.ToSlash(filepath.Join(prefix, rel)),
			Path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func addEntry(w *zip.Writer, e Entry) error {
	writer, err := w.Create(e.Name)
	if err != nil {
		return err
	}

	if e.Data != nil || e.Path == "" {
		_, err = writer.Write(e.Data)
		return err
	}

	file, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}
