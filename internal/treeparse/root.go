package treeparse

import "strings"

// DetectRoot returns the root directory name declared by the first structural line.
// A structural line is one that is neither blank nor decorative once its comment is
// removed. The root exists only when that line is a bare name ending in "/";
// lines carrying a branch marker never declare a root.
func DetectRoot(lines []string) (string, bool) {
	for _, line := range lines {
		content := StripComment(line)
		if IsDecorative(content) {
			continue
		}
		if !strings.HasSuffix(content, directorySuffix) || hasBranchMarker(content) {
			return "", false
		}
		name := strings.TrimSuffix(content, directorySuffix)
		if name == "" {
			return "", false
		}
		return name, true
	}
	return "", false
}

func hasBranchMarker(content string) bool {
	for _, marker := range branchMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
