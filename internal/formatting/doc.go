// Package formatting asks a language model to turn extracted vocabulary into
// deck lines of the form "term-with-readings,meaning". It is an optional
// replacement for local furigana alignment and talks to OpenAI or Gemini
// through a circuit breaker, so a failing provider fails fast instead of
// stalling every session.
package formatting
