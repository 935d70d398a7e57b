// Package vocab extracts numbered vocabulary entries from the plain text of
// a printed word list. Each recognised layout is a Rule, so new document
// formats are added by appending rules rather than editing the extractor.
package vocab
