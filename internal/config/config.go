// Package config loads application configuration and exclusion pattern files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tyemirov/mktree/internal/utils"
)

const commentPrefix = "#"

// LoadExclusionFilePatterns reads gitignore-style patterns from a file, one per
// line. Blank lines and comment lines are skipped. A missing file yields no patterns.
//
// #nosec G304
func LoadExclusionFilePatterns(exclusionFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(exclusionFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", exclusionFilePath, closeError)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return patterns, nil
}

// LoadCombinedExclusionPatterns aggregates patterns from the ignore file in the
// working directory, an optional explicit pattern file and the given patterns.
// An explicit pattern file must exist.
func LoadCombinedExclusionPatterns(workingDirectory string, exclusionFilePath string, exclusionPatterns []string) ([]string, error) {
	var combinedPatterns []string

	if workingDirectory != "" {
		ignoreFilePath := filepath.Join(workingDirectory, utils.IgnoreFileName)
		ignoreFilePatterns, loadError := LoadExclusionFilePatterns(ignoreFilePath)
		if loadError != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", utils.IgnoreFileName, workingDirectory, loadError)
		}
		combinedPatterns = append(combinedPatterns, ignoreFilePatterns...)
	}

	if exclusionFilePath != "" {
		if _, statError := os.Stat(exclusionFilePath); statError != nil {
			return nil, fmt.Errorf("exclusion file %s: %w", exclusionFilePath, statError)
		}
		filePatterns, loadError := LoadExclusionFilePatterns(exclusionFilePath)
		if loadError != nil {
			return nil, fmt.Errorf("loading exclusion file %s: %w", exclusionFilePath, loadError)
		}
		combinedPatterns = append(combinedPatterns, filePatterns...)
	}

	for _, pattern := range exclusionPatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		combinedPatterns = append(combinedPatterns, trimmedPattern)
	}

	return utils.DeduplicatePatterns(combinedPatterns), nil
}
