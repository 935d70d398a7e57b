// Package audio cuts one recording of spoken vocabulary into per-term clips.
//
// The recording is split at silences: everything between two silences is one
// spoken term. Clip order follows the recording, so the n-th clip belongs to
// the n-th entry of the word list.
package audio
