package receipt

import (
	"regexp"
	"strings"
)

var (
	ordinalRe   = regexp.MustCompile(`^\d+\.\s+`)
	qtyMarkerRe = regexp.MustCompile(`[\d.,]+\s*[xх*]\s*[\d\s.,]*\d`)
)

// assembleBlocks groups item-region lines into per-product blocks. A block
// opens at an ordinal marker ("3. ") or, in layouts without ordinals, at a
// quantity marker ("2 x 450") that no open block is still waiting for.
// Everything else is a continuation of the current block: wrapped product
// names and prices printed on their own line. Lines before the first marker
// are OCR preamble and are discarded.
func assembleBlocks(lines []string) []Block {
	var blocks []Block
	var open *Block
	openHasQty := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if marker := ordinalRe.FindString(line); marker != "" {
			if open != nil {
				blocks = append(blocks, *open)
			}
			open = &Block{NameHint: strings.TrimSpace(line[len(marker):])}
			openHasQty = false
			continue
		}

		loc := qtyMarkerRe.FindStringIndex(line)
		if loc != nil && (open == nil || openHasQty) {
			if open != nil {
				blocks = append(blocks, *open)
			}
			// split the name prefix off so Text() carries each word once
			open = &Block{
				NameHint: strings.TrimSpace(line[:loc[0]]),
				RawLines: []string{strings.TrimSpace(line[loc[0]:])},
			}
			openHasQty = true
			continue
		}

		if open == nil {
			continue
		}
		open.RawLines = append(open.RawLines, line)
		if loc != nil {
			openHasQty = true
		}
	}

	if open != nil {
		blocks = append(blocks, *open)
	}
	return blocks
}
