// Package pdftext pulls the plain text out of a vocabulary PDF, one output
// line per visual row, pages in order.
package pdftext
