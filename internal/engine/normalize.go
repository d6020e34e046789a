package engine

import "strings"

// Position is a character-precise document coordinate (0-based line and
// column).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open character span: Start inclusive, End exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NormalizeContent guarantees that non-empty edit content ends with a
// newline before it is staged. Without it two corruption classes appear:
// the edited text merges with the line that follows it, or deleting a full
// line leaves a stray blank line behind.
func NormalizeContent(content string) string {
	if content == "" {
		return ""
	}
	if !strings.HasSuffix(content, "\n") {
		return content + "\n"
	}
	return content
}

// ContentLines converts normalized content into the lines it contributes to
// the buffer. Empty content contributes nothing (a pure deletion).
func ContentLines(content string) []string {
	content = NormalizeContent(content)
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	return lines[:len(lines)-1]
}

// DeletionRange widens a matched span into the exact range to remove.
// A match that starts at column 0 and runs to the end of its line must also
// consume the trailing newline, so the range extends to column 0 of the next
// line; otherwise deleting it would leave a blank line behind. The one
// exception is the document's last line, which has no newline to consume.
// A partial match strictly inside a line never extends past its own line end.
func DeletionRange(lines []string, r Range) Range {
	if r.End.Line < 0 || r.End.Line >= len(lines) {
		return r
	}
	fullLine := r.Start.Character == 0 && r.End.Character == len(lines[r.End.Line])
	if fullLine && r.End.Line < len(lines)-1 {
		return Range{Start: r.Start, End: Position{Line: r.End.Line + 1, Character: 0}}
	}
	return r
}
