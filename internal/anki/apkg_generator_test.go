package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAPKGGenerator(t *testing.T) {
	gen := NewAPKGGenerator("Test Deck")

	if gen == nil {
		t.Fatal("NewAPKGGenerator returned nil")
	}
	if gen.deckName != "Test Deck" {
		t.Errorf("Expected deck name 'Test Deck', got '%s'", gen.deckName)
	}
	if len(gen.cards) != 0 || len(gen.media) != 0 {
		t.Errorf("Expected empty generator, got %d cards and %d media", len(gen.cards), len(gen.media))
	}
	if gen.modelID == gen.deckID {
		t.Error("Deck and model IDs must differ")
	}
}

func TestChecksum(t *testing.T) {
	if checksum("猫") != checksum("猫") {
		t.Error("checksum is not deterministic")
	}
	if checksum("猫") == checksum("犬") {
		t.Error("distinct fields share a checksum")
	}
	if checksum("") < 0 {
		t.Error("checksum must be non-negative")
	}
}

func TestGenerateAPKG(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "deck.apkg")

	gen := NewGenerator(nil)
	gen.AddResult(AssembleNotes(
		[]Note{{Front: "今日[きょう]", Back: "Today"}, {Front: "猫[ねこ]", Back: "cat"}},
		clipsOf(2),
	))

	if err := gen.GenerateAPKG(outputPath, "JLPT N5"); err != nil {
		t.Fatalf("GenerateAPKG failed: %v", err)
	}

	r, err := zip.OpenReader(outputPath)
	if err != nil {
		t.Fatalf("Failed to open apkg: %v", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		files[f.Name] = f
	}
	for _, name := range []string{"collection.anki2", "media", "0", "1"} {
		if files[name] == nil {
			t.Errorf("apkg is missing %s", name)
		}
	}

	rc, err := files["media"].Open()
	if err != nil {
		t.Fatalf("Failed to open media map: %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()

	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		t.Fatalf("Invalid media map: %v", err)
	}
	if mapping["0"] != "001.mp3" || mapping["1"] != "002.mp3" {
		t.Errorf("Unexpected media map %v", mapping)
	}

	// Extract the collection and inspect the notes
	dbPath := filepath.Join(tmpDir, "collection.anki2")
	rc, err = files["collection.anki2"].Open()
	if err != nil {
		t.Fatalf("Failed to open collection: %v", err)
	}
	dbData, _ := io.ReadAll(rc)
	rc.Close()
	if err := os.WriteFile(dbPath, dbData, 0644); err != nil {
		t.Fatalf("Failed to write collection: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open collection: %v", err)
	}
	defer db.Close()

	var notes, cards int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&notes); err != nil {
		t.Fatalf("Failed to count notes: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cards); err != nil {
		t.Fatalf("Failed to count cards: %v", err)
	}
	if notes != 2 || cards != 4 {
		t.Errorf("Expected 2 notes and 4 cards, got %d and %d", notes, cards)
	}

	var flds string
	if err := db.QueryRow("SELECT flds FROM notes ORDER BY id LIMIT 1").Scan(&flds); err != nil {
		t.Fatalf("Failed to read note: %v", err)
	}
	fields := strings.Split(flds, fieldSeparator)
	if len(fields) != 3 || fields[0] != "今日[きょう]" || fields[1] != "Today" || fields[2] != "[sound:001.mp3]" {
		t.Errorf("Unexpected note fields %q", fields)
	}

	var decks string
	if err := db.QueryRow("SELECT decks FROM col").Scan(&decks); err != nil {
		t.Fatalf("Failed to read decks: %v", err)
	}
	if !strings.Contains(decks, "JLPT N5") {
		t.Errorf("Deck name missing from collection: %s", decks)
	}
}
