// Package anki pairs vocabulary with audio clips into flashcards and writes
// them out as an Anki import CSV or a native .apkg package.
package anki
