package treeparse

import "strings"

// parserState is threaded through every line of a single parse.
type parserState struct {
	stack    []string
	rootSeen bool
}

// lineResult is what one line contributes to the structure.
type lineResult struct {
	entry   *Entry
	isRoot  bool
	skipped bool
	content string
}

// Parse converts diagram lines into an ordered structure.
//
// rootAlreadyConsumed tells whether the caller created the root directory on its
// own. The first root-shaped line is never emitted either way; the flag is kept on
// the returned structure so callers can reason about the implicit root segment.
func Parse(lines []string, rootAlreadyConsumed bool) Structure {
	structure := newStructure(rootAlreadyConsumed)
	state := parserState{}
	for index, line := range lines {
		var result lineResult
		state, result = step(state, line, index+1)
		switch {
		case result.isRoot:
			structure.rootLine = index + 1
		case result.skipped:
			structure.skipped = append(structure.skipped, SkippedLine{Line: index + 1, Content: result.content})
		case result.entry != nil:
			structure.record(*result.entry)
		}
	}
	return structure
}

// step applies one raw line to the parser state.
func step(state parserState, rawLine string, lineNumber int) (parserState, lineResult) {
	content := StripComment(rawLine)
	if IsDecorative(content) {
		return state, lineResult{}
	}

	if !state.rootSeen && strings.HasSuffix(content, directorySuffix) {
		state.rootSeen = true
		return state, lineResult{isRoot: true, content: content}
	}

	depth, remainder := consumeIndentation(rawLine)
	state.stack = truncate(state.stack, depth)

	item, marker, found := extractItem(StripComment(remainder))
	if !found {
		return state, lineResult{skipped: true, content: content}
	}

	if strings.HasSuffix(item, directorySuffix) {
		name := strings.TrimSuffix(item, directorySuffix)
		if name == "" {
			return state, lineResult{skipped: true, content: content}
		}
		state.stack = push(state.stack, name)
		entry := Entry{
			Path:  strings.Join(state.stack, pathSeparator),
			Kind:  Directory,
			Line:  lineNumber,
			Depth: depth,
		}
		return state, lineResult{entry: &entry, content: content}
	}

	entry := Entry{
		Path:  strings.Join(push(state.stack, item), pathSeparator),
		Kind:  File,
		Line:  lineNumber,
		Depth: depth,
	}
	if marker == LastBranchMarker {
		state.stack = pop(state.stack)
	}
	return state, lineResult{entry: &entry, content: content}
}

// extractItem returns the entry text that follows a branch marker. Without a
// marker the whole content counts only when it has a directory shape.
func extractItem(content string) (string, string, bool) {
	for _, marker := range branchMarkers {
		_, afterMarker, found := strings.Cut(content, marker)
		if !found {
			continue
		}
		item, _, _ := strings.Cut(afterMarker, marker)
		item = strings.TrimSpace(item)
		if item == "" {
			return "", "", false
		}
		return item, marker, true
	}
	if strings.HasSuffix(content, directorySuffix) {
		return content, "", true
	}
	return "", "", false
}

// truncate never grows the stack: a depth beyond the current level keeps it as is.
func truncate(stack []string, depth int) []string {
	if depth < len(stack) {
		return stack[:depth]
	}
	return stack
}

// push copies so that earlier states never observe later pushes.
func push(stack []string, name string) []string {
	extended := make([]string, len(stack), len(stack)+1)
	copy(extended, stack)
	return append(extended, name)
}

func pop(stack []string) []string {
	if len(stack) == 0 {
		return stack
	}
	return stack[:len(stack)-1]
}
