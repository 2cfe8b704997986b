package utils

import "fmt"

const countLabelFormat = "%d %s"

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// CountLabel formats a count with the singular or plural noun.
func CountLabel(count int, singular string, plural string) string {
	if count == 1 {
		return fmt.Sprintf(countLabelFormat, count, singular)
	}
	return fmt.Sprintf(countLabelFormat, count, plural)
}
