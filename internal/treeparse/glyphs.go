// Package treeparse recovers directory and file paths from box-drawing tree diagrams.
package treeparse

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	// BranchMarker introduces an entry that has later siblings.
	BranchMarker = "├── "
	// LastBranchMarker introduces the final entry of a directory.
	LastBranchMarker = "└── "
	// ContinuationUnit is one level of indentation under a non-final entry.
	ContinuationUnit = "│   "
	// BlankUnit is one level of indentation under a final entry.
	BlankUnit = "    "

	commentMarker      = "#"
	directorySuffix    = "/"
	pathSeparator      = "/"
	nonBreakingSpace   = "\u00a0"
	regularSpace       = " "
	verticalGlyph      = '│'
	teeGlyph           = '├'
	cornerGlyph        = '└'
	horizontalGlyph    = '─'
	decorativeSpaceRun = ' '
)

var (
	boxGlyphs = []rune{verticalGlyph, teeGlyph, cornerGlyph, horizontalGlyph}

	// indentationUnits is tried in order at the start of a raw line.
	indentationUnits = []string{ContinuationUnit, BlankUnit}

	// branchMarkers is searched in order; the first one present wins.
	branchMarkers = []string{BranchMarker, LastBranchMarker}

	garbledGlyphs      = buildGarbledGlyphs()
	decorativeRunes    = buildDecorativeRunes()
	lineRepairReplacer = buildLineRepairReplacer()
)

// buildGarbledGlyphs maps each box-drawing glyph to the text produced when its
// UTF-8 bytes are decoded as Windows-1251.
func buildGarbledGlyphs() map[rune]string {
	decoder := charmap.Windows1251.NewDecoder()
	garbled := make(map[rune]string, len(boxGlyphs))
	for _, glyph := range boxGlyphs {
		decoded, decodeError := decoder.String(string(glyph))
		if decodeError != nil || decoded == string(glyph) {
			continue
		}
		garbled[glyph] = decoded
	}
	return garbled
}

// buildDecorativeRunes returns the set of runes that make up a decorative line.
// Runes of the Windows-1251 mis-decoding are included so that input which was
// not repaired by NormalizeLine still classifies the same way.
func buildDecorativeRunes() map[rune]struct{} {
	runes := map[rune]struct{}{decorativeSpaceRun: {}}
	for _, glyph := range boxGlyphs {
		runes[glyph] = struct{}{}
	}
	for _, garbled := range garbledGlyphs {
		for _, garbledRune := range garbled {
			runes[garbledRune] = struct{}{}
		}
	}
	return runes
}

func buildLineRepairReplacer() *strings.Replacer {
	pairs := make([]string, 0, 2*len(garbledGlyphs)+2)
	for _, glyph := range boxGlyphs {
		garbled, known := garbledGlyphs[glyph]
		if !known {
			continue
		}
		pairs = append(pairs, garbled, string(glyph))
	}
	pairs = append(pairs, nonBreakingSpace, regularSpace)
	return strings.NewReplacer(pairs...)
}

// IsDecorative reports whether text consists only of box-drawing glyphs and spaces.
// Empty text is decorative.
func IsDecorative(text string) bool {
	for _, character := range text {
		if _, decorative := decorativeRunes[character]; !decorative {
			return false
		}
	}
	return true
}

// StripComment removes an inline comment and surrounding whitespace.
func StripComment(line string) string {
	content, _, _ := strings.Cut(line, commentMarker)
	return strings.TrimSpace(content)
}

// MeasureDepth counts the indentation units at the start of a raw line.
func MeasureDepth(rawLine string) int {
	depth, _ := consumeIndentation(rawLine)
	return depth
}

// consumeIndentation greedily removes leading indentation units and returns how
// many were removed along with the rest of the line.
func consumeIndentation(rawLine string) (int, string) {
	depth := 0
	remaining := rawLine
	for {
		consumed := false
		for _, unit := range indentationUnits {
			if strings.HasPrefix(remaining, unit) {
				remaining = remaining[len(unit):]
				depth++
				consumed = true
				break
			}
		}
		if !consumed {
			return depth, remaining
		}
	}
}
