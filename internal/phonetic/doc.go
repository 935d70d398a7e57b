// Package phonetic looks up kana readings for vocabulary entries whose word
// list printed none, using a language model. The reply is accepted only if
// it is pure kana.
package phonetic
