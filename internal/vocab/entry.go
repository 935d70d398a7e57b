package vocab

// Entry is one vocabulary item in list order
type Entry struct {
	Index   int    // 1-based position in the extracted list
	Term    string // Written form, possibly mixed kanji and kana
	Reading string // Kana reading, empty when the layout carries none
	Meaning string // Translation text
	Rule    string // Name of the rule that recognised the line
}

// HasReading reports whether the entry carries a reading
func (e Entry) HasReading() bool {
	return e.Reading != ""
}
