// Package furigana annotates Japanese vocabulary terms with their readings
// in the inline bracket notation understood by Anki's furigana filter, for
// example 努[ど] 力[りょく]する or 今日[きょう]. Alignment is heuristic: a
// tokenizer oracle decides whether a term is atomic, and non-atomic terms are
// walked character by character with a greedy reading matcher.
package furigana
