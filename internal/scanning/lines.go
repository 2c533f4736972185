package scanning

import (
	"sort"
	"strings"
)

// yTolerance is the maximum vertical distance (pixel units) between a word's
// top edge and the line's reference Y for the word to join that line. Tuned
// for the resolution of phone receipt photos.
const yTolerance = 20

// ReconstructLines groups OCR word boxes into text lines. Words are grouped
// by the top-edge Y of their bounding box and ordered by X within each line,
// restoring vertical then horizontal reading order. The first element of the
// input is the full-text blob and is skipped.
//
// Two physical lines whose Y ranges overlap within the tolerance may be
// merged; that is OCR noise the downstream parser has to live with.
func ReconstructLines(words []WordBox) []string {
	if len(words) <= 1 {
		return nil
	}
	sorted := make([]WordBox, len(words)-1)
	copy(sorted, words[1:])
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box[0].Y < sorted[j].Box[0].Y
	})

	var lines []string
	var current []WordBox
	referenceY := -1

	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool {
			return current[i].Box[0].X < current[j].Box[0].X
		})
		parts := make([]string, len(current))
		for i, w := range current {
			parts[i] = w.Text
		}
		lines = append(lines, strings.Join(parts, " "))
	}

	for _, word := range sorted {
		y := word.Box[0].Y
		switch {
		case referenceY == -1:
			referenceY = y
			current = append(current, word)
		case abs(y-referenceY) < yTolerance:
			current = append(current, word)
		default:
			flush()
			current = []WordBox{word}
			referenceY = y
		}
	}
	flush()

	return lines
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
