package vocab

import (
	"regexp"
	"strings"

	"codeberg.org/snonux/vocabdeck/internal/furigana"
)

// itemPrefix matches the list numbering: a decimal numeral followed by a
// comma-like separator. Text is NFKC-normalised first, so the full-width and
// half-width ideographic commas arrive as ',' or '、'. A full stop is not a
// separator: "1. Basic Nouns" is a heading and "2.5 kg" a decimal.
const itemPrefix = `^\s*\d+\s*[,、]\s*`

// Rule recognises one line layout
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// Build turns the submatches into an entry; false rejects the line
	Build func(groups []string) (Entry, bool)
}

// Match applies the rule to a single line
func (r Rule) Match(line string) (Entry, bool) {
	groups := r.Pattern.FindStringSubmatch(line)
	if groups == nil {
		return Entry{}, false
	}
	entry, ok := r.Build(groups)
	if !ok {
		return Entry{}, false
	}
	entry.Rule = r.Name
	return entry, true
}

// ParenRule matches "<num><sep><term>(<reading>)<meaning>"
func ParenRule() Rule {
	return Rule{
		Name:    "paren",
		Pattern: regexp.MustCompile(itemPrefix + `(\S+?)\s*\(\s*([^()]+?)\s*\)\s*(.+)$`),
		Build:   buildWithReading,
	}
}

// SpacedRule matches "<num><sep><term> <reading> <meaning>" where the
// reading token is kana only
func SpacedRule() Rule {
	return Rule{
		Name:    "spaced",
		Pattern: regexp.MustCompile(itemPrefix + `(\S+)\s+(\S+)\s+(.+)$`),
		Build:   buildWithReading,
	}
}

// BareRule matches "<num><sep><term> <meaning>" with no reading. The term
// must be Japanese, otherwise numbered English lines would become entries.
func BareRule() Rule {
	return Rule{
		Name:    "bare",
		Pattern: regexp.MustCompile(itemPrefix + `(\S+)\s+(.+)$`),
		Build: func(groups []string) (Entry, bool) {
			term := strings.TrimSpace(groups[1])
			meaning := strings.TrimSpace(groups[2])
			if term == "" || meaning == "" {
				return Entry{}, false
			}
			if !furigana.HasKanji(term) && !furigana.AllKana(term) {
				return Entry{}, false
			}
			return Entry{Term: term, Meaning: meaning}, true
		},
	}
}

// DefaultRules returns the built-in layouts in priority order
func DefaultRules() []Rule {
	return []Rule{ParenRule(), SpacedRule(), BareRule()}
}

func buildWithReading(groups []string) (Entry, bool) {
	term := strings.TrimSpace(groups[1])
	reading := strings.TrimSpace(groups[2])
	meaning := strings.TrimSpace(groups[3])

	if term == "" || meaning == "" || !furigana.AllKana(reading) {
		return Entry{}, false
	}
	return Entry{Term: term, Reading: reading, Meaning: meaning}, true
}
