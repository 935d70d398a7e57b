package vocab

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extractor turns page text into entries using an ordered rule set.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	rules []Rule
}

// NewExtractor creates an extractor. Without rules it uses DefaultRules.
func NewExtractor(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Extract parses text with the default rules
func Extract(text string) []Entry {
	return NewExtractor().Extract(text)
}

// Extract returns one entry per recognised line, in line order. Lines that
// match no rule (headers, footers, page numbers) are skipped. An empty
// result is valid.
func (e *Extractor) Extract(text string) []Entry {
	text = norm.NFKC.String(text)

	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, rule := range e.rules {
			entry, ok := rule.Match(line)
			if !ok {
				continue
			}
			entry.Index = len(entries) + 1
			entries = append(entries, entry)
			break
		}
	}

	return entries
}
