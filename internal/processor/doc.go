// Package processor contains the deck generation pipeline. It turns one
// session's PDF and recording into a CSV, the numbered audio clips, an
// optional APKG and the downloadable zip archive, and it runs that
// pipeline for many sessions in parallel. It is the coordinator between
// the extractor, the aligner, the segmenter and the packagers.
package processor
