package furigana

import (
	"fmt"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Oracle decides whether a term is morphologically atomic, i.e. a single
// indivisible token whose reading must not be split per character.
type Oracle interface {
	IsAtomic(term string) bool
}

// OracleFunc adapts a plain function to the Oracle interface
type OracleFunc func(term string) bool

// IsAtomic calls f(term)
func (f OracleFunc) IsAtomic(term string) bool {
	return f(term)
}

// NeverAtomic is an Oracle that always asks for per-character alignment
var NeverAtomic Oracle = OracleFunc(func(string) bool { return false })

// KagomeOracle segments terms with the kagome morphological analyzer and the
// IPA dictionary. Loading the dictionary is expensive, so construct it once
// per process and share it; Tokenize does not mutate the tokenizer.
type KagomeOracle struct {
	tok *tokenizer.Tokenizer
}

// NewKagomeOracle loads the IPA dictionary and builds the tokenizer
func NewKagomeOracle() (*KagomeOracle, error) {
	tok, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}
	return &KagomeOracle{tok: tok}, nil
}

// IsAtomic reports whether term tokenizes to exactly one token spanning the
// whole term
func (o *KagomeOracle) IsAtomic(term string) bool {
	tokens := o.tok.Tokenize(term)
	return len(tokens) == 1 && tokens[0].Surface == term
}
