package furigana

import "unicode"

// prolongedSoundMark is the katakana-hiragana prolonged sound mark (ー),
// which Unicode assigns to the Common script.
const prolongedSoundMark = 'ー'

// IsKana reports whether r is a hiragana or katakana character
func IsKana(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana) || r == prolongedSoundMark
}

// IsKanji reports whether r is an ideographic (Han) character, including
// the iteration mark 々
func IsKanji(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// IsSmallKana reports whether r is a small kana that only attaches to the
// preceding syllable (ゃ, ッ, ぁ, ...) or the prolonged sound mark
func IsSmallKana(r rune) bool {
	switch r {
	case 'ぁ', 'ぃ', 'ぅ', 'ぇ', 'ぉ', 'っ', 'ゃ', 'ゅ', 'ょ', 'ゎ',
		'ァ', 'ィ', 'ゥ', 'ェ', 'ォ', 'ッ', 'ャ', 'ュ', 'ョ', 'ヮ', 'ヵ', 'ヶ',
		prolongedSoundMark:
		return true
	}
	return false
}

// AllKana reports whether s is non-empty and consists only of kana
func AllKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsKana(r) {
			return false
		}
	}
	return true
}

// HasKanji reports whether s contains at least one ideographic character
func HasKanji(s string) bool {
	for _, r := range s {
		if IsKanji(r) {
			return true
		}
	}
	return false
}

func allKanaRunes(rs []rune) bool {
	if len(rs) == 0 {
		return false
	}
	for _, r := range rs {
		if !IsKana(r) {
			return false
		}
	}
	return true
}
