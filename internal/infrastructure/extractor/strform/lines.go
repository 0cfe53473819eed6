package strform

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// The form lays text out as absolute-positioned runs, often one glyph per
// run. Line reconstruction groups runs by baseline, orders them
// left-to-right and splits them into words on horizontal gaps, which is what
// both the label scan and the dependent-table column bucketing operate on.

const (
	// Runs within this many points vertically share a baseline.
	sameLineThreshold = 3.0
	// Minimum horizontal gap, in points, that separates two words when the
	// font size gives no better estimate.
	minWordGap = 1.0
)

type word struct {
	x    float64
	text string
}

type textLine struct {
	y     float64
	words []word
	text  string
}

// upper returns the line text uppercased for keyword matching.
func (l textLine) upper() string {
	return strings.ToUpper(l.text)
}

// buildLines reconstructs reading-order lines from raw text runs. Returned
// lines are ordered top of page first (PDF Y decreases downward in the
// returned order).
func buildLines(texts []pdf.Text) []textLine {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		runs = append(runs, t)
	}
	if len(runs) == 0 {
		return nil
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var lines []textLine
	var current []pdf.Text
	baseline := runs[0].Y
	for _, r := range runs {
		if baseline-r.Y > sameLineThreshold {
			lines = append(lines, assembleLine(current, baseline))
			current = current[:0]
			baseline = r.Y
		}
		current = append(current, r)
	}
	lines = append(lines, assembleLine(current, baseline))
	return lines
}

// assembleLine merges adjacent runs into words on a single baseline.
func assembleLine(runs []pdf.Text, y float64) textLine {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	line := textLine{y: y}
	var b strings.Builder
	wordStart := 0.0
	prevEnd := 0.0

	flush := func() {
		if b.Len() == 0 {
			return
		}
		line.words = append(line.words, word{x: wordStart, text: b.String()})
		b.Reset()
	}

	for _, r := range runs {
		gap := wordGap(r.FontSize)
		if b.Len() > 0 && r.X-prevEnd > gap {
			flush()
		}
		if b.Len() == 0 {
			wordStart = r.X
		}
		b.WriteString(r.S)
		end := r.X + r.W
		if end > prevEnd {
			prevEnd = end
		}
	}
	flush()

	parts := make([]string, len(line.words))
	for i, w := range line.words {
		parts[i] = w.text
	}
	line.text = normalizeSpace(strings.Join(parts, " "))
	return line
}

func wordGap(fontSize float64) float64 {
	gap := fontSize * 0.25
	if gap < minWordGap {
		gap = minWordGap
	}
	return gap
}

// containsAll reports whether the line mentions every keyword.
func containsAll(lineUpper string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, kw := range keywords {
		if !strings.Contains(lineUpper, strings.ToUpper(kw)) {
			return false
		}
	}
	return true
}

// findSection returns the index of the first line matching the section
// header keywords at or after from.
func findSection(lines []textLine, keywords []string, from int) (int, bool) {
	for i := from; i < len(lines); i++ {
		if containsAll(lines[i].upper(), keywords) {
			return i, true
		}
	}
	return 0, false
}
