package treeparse

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	initialLineBufferSize = 4 * 1024
	maximumLineSize       = 1024 * 1024
	readLinesErrorFormat  = "read structure lines: %w"
)

// ReadLines decodes reader into normalized diagram lines.
// A UTF-8 or UTF-16 byte order mark selects the encoding and is dropped;
// input without one is treated as UTF-8.
func ReadLines(reader io.Reader) ([]string, error) {
	decoder := textunicode.BOMOverride(textunicode.UTF8.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(reader, decoder))
	scanner.Buffer(make([]byte, 0, initialLineBufferSize), maximumLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, NormalizeLine(scanner.Text()))
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf(readLinesErrorFormat, scanError)
	}
	return lines, nil
}

// SplitLines normalizes text that is already in memory, such as clipboard content.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	rawLines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		lines = append(lines, NormalizeLine(rawLine))
	}
	return lines
}

// NormalizeLine drops a trailing carriage return, repairs box-drawing glyphs that
// were mis-decoded as Windows-1251, turns non-breaking spaces into spaces, and
// composes the text to NFC.
func NormalizeLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = lineRepairReplacer.Replace(line)
	return norm.NFC.String(line)
}
