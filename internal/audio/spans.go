package audio

import (
	"math"
	"sort"
	"time"
)

// openEnded marks a silence whose end was not reported before the stream ended
const openEnded = time.Duration(math.MaxInt64)

// SpeechSpans returns the complement of silences within [0, total] in
// chronological order. Each span is widened by keep on both sides, but never
// past the midpoint of the neighbouring gap, so padded spans do not overlap.
func SpeechSpans(silences []Silence, total, keep time.Duration) []Span {
	if total <= 0 {
		return nil
	}

	sorted := make([]Silence, 0, len(silences))
	for _, s := range silences {
		s.Start = clampDuration(s.Start, 0, total)
		s.End = clampDuration(s.End, 0, total)
		if s.End > s.Start {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var raw []Span
	cursor := time.Duration(0)
	for _, s := range sorted {
		if s.Start > cursor {
			raw = append(raw, Span{Start: cursor, End: s.Start})
		}
		if s.End > cursor {
			cursor = s.End
		}
	}
	if cursor < total {
		raw = append(raw, Span{Start: cursor, End: total})
	}

	if keep <= 0 {
		return raw
	}

	padded := make([]Span, len(raw))
	for i, span := range raw {
		var before, after time.Duration
		if i == 0 {
			before = min(keep, span.Start)
		} else {
			before = min(keep, (span.Start-raw[i-1].End)/2)
		}

		if i == len(raw)-1 {
			after = min(keep, total-span.End)
		} else {
			after = min(keep, (raw[i+1].Start-span.End)/2)
		}

		padded[i] = Span{Start: span.Start - before, End: span.End + after}
	}

	return padded
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
