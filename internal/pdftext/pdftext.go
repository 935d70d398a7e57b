package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable is returned for files that are not a parseable PDF
var ErrUnreadable = errors.New("unreadable PDF")

const (
	// wordGap is the horizontal gap, as a fraction of the font size, above
	// which two glyphs on a row belong to separate words
	wordGap = 0.25

	// rowTolerance is the baseline difference, as a fraction of the font
	// size, within which two glyphs share a row
	rowTolerance = 0.5
)

// ExtractFile returns the text of the PDF at path
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	return Extract(bytes.NewReader(data), int64(len(data)))
}

// Extract returns the text of a PDF. Each visual row becomes one line and a
// blank line separates pages.
func Extract(r io.ReaderAt, size int64) (text string, err error) {
	// The parser panics on some malformed inputs
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, line := range pageLines(page.Content().Text) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}

type row struct {
	y      float64
	glyphs []pdf.Text
}

// pageLines groups glyphs by baseline, top to bottom, and joins each row
// left to right
func pageLines(glyphs []pdf.Text) []string {
	var rows []*row
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		tolerance := rowTolerance * math.Max(g.FontSize, 1)

		var target *row
		for _, r := range rows {
			if math.Abs(r.y-g.Y) <= tolerance {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{y: g.Y}
			rows = append(rows, target)
		}
		target.glyphs = append(target.glyphs, g)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		sort.SliceStable(r.glyphs, func(i, j int) bool { return r.glyphs[i].X < r.glyphs[j].X })
		if line := joinRow(r.glyphs); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// joinRow concatenates the glyphs of one row, inserting a space where the
// layout leaves a visible gap
func joinRow(glyphs []pdf.Text) string {
	var sb strings.Builder
	lastSpace := true
	for i, g := range glyphs {
		if i > 0 && !lastSpace && !strings.HasPrefix(g.S, " ") {
			prev := glyphs[i-1]
			gap := g.X - (prev.X + advance(prev))
			if gap > wordGap*math.Max(g.FontSize, prev.FontSize) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)
		lastSpace = strings.HasSuffix(g.S, " ")
	}
	return strings.TrimSpace(sb.String())
}

// advance is the glyph width, estimated from the font size when the font
// carries no width table (common for embedded CJK fonts)
func advance(g pdf.Text) float64 {
	if g.W > 0 {
		return g.W
	}
	for _, r := range g.S {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) || r >= 0xFF00 {
			return g.FontSize
		}
	}
	return g.FontSize / 2
}
