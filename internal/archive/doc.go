// Package archive writes zip bundles: the downloadable deck archive and the
// zip container of an Anki package.
package archive
