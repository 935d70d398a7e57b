package furigana

import "strings"

// maxFragment is the longest reading fragment tried for a single ideograph
const maxFragment = 3

// Aligner places reading annotations on a term.
type Aligner interface {
	// Align returns the display form of term with reading markup. It never
	// fails; readings it cannot place are passed through literally.
	Align(term, reading string) string
}

// Option configures a GreedyAligner
type Option func(*GreedyAligner)

// WithReserve makes candidate fragments leave at least one reading character
// for every remaining term character, forbids fragments that start with or
// split off a small kana, and only advances over okurigana that actually
// matches the reading.
func WithReserve() Option {
	return func(a *GreedyAligner) {
		a.reserve = true
	}
}

// GreedyAligner is the heuristic character-by-character aligner. For each
// ideograph it tries fragment lengths 1..3 and keeps the longest plausible
// one. It does no dictionary lookup and never backtracks.
type GreedyAligner struct {
	oracle  Oracle
	reserve bool
}

// NewGreedyAligner creates an aligner. A nil oracle treats every term as
// decomposable.
func NewGreedyAligner(oracle Oracle, opts ...Option) *GreedyAligner {
	if oracle == nil {
		oracle = NeverAtomic
	}
	a := &GreedyAligner{oracle: oracle}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align implements Aligner
func (a *GreedyAligner) Align(term, reading string) string {
	term = strings.TrimSpace(term)
	reading = strings.TrimSpace(reading)

	if reading == "" || !HasKanji(term) {
		return term
	}
	if a.oracle.IsAtomic(term) {
		return term + "[" + reading + "]"
	}

	chars := []rune(term)
	kana := []rune(reading)

	var b strings.Builder
	pos := 0
	// A space separates two bracketed units only
	prevBracketed := false

	for i, ch := range chars {
		if !IsKanji(ch) {
			b.WriteRune(ch)
			pos = a.advanceOkurigana(kana, pos, ch)
			prevBracketed = false
			continue
		}

		n := a.fragmentLength(chars[i+1:], kana, pos)
		if n == 0 {
			// Nothing plausible left for this ideograph
			b.WriteRune(ch)
			prevBracketed = false
			continue
		}

		if prevBracketed {
			b.WriteByte(' ')
		}
		b.WriteRune(ch)
		b.WriteByte('[')
		b.WriteString(string(kana[pos : pos+n]))
		b.WriteByte(']')
		pos += n
		prevBracketed = true
	}

	if pos < len(kana) {
		b.WriteString(string(kana[pos:]))
	}

	return b.String()
}

// fragmentLength returns the length of the longest plausible fragment at pos,
// or 0 when no length qualifies. rest holds the term characters after the
// current ideograph.
func (a *GreedyAligner) fragmentLength(rest, kana []rune, pos int) int {
	best := 0
	for n := 1; n <= maxFragment; n++ {
		end := pos + n
		if end > len(kana) {
			break
		}
		if !allKanaRunes(kana[pos:end]) {
			continue
		}
		if a.reserve {
			if len(kana)-end < len(rest) {
				continue
			}
			if IsSmallKana(kana[pos]) {
				continue
			}
			if end < len(kana) && IsSmallKana(kana[end]) {
				continue
			}
		}
		best = n
	}
	return best
}

// advanceOkurigana moves the reading pointer past a literal character
func (a *GreedyAligner) advanceOkurigana(kana []rune, pos int, ch rune) int {
	if pos >= len(kana) {
		return len(kana)
	}
	if a.reserve && kana[pos] != ch {
		return pos
	}
	return pos + 1
}
