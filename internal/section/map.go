package section

import (
	"strings"

	"docedit/internal/toc"
)

// Node is the derived, immutable view of one section over the document
// snapshot. All line numbers are 0-based document-absolute; ContentLines
// excludes the heading line.
type Node struct {
	SID              string
	Title            string
	Level            int
	ParentSID        string
	TitleLine        int
	ContentStartLine int
	ContentEndLine   int
	ContentLines     []string
}

// HasContent reports whether the section has at least one content line.
func (n *Node) HasContent() bool {
	return len(n.ContentLines) > 0
}

// Map is the per-batch arena of sections, keyed by sid. It is rebuilt fresh
// from the caller's document snapshot for every batch and never mutated.
type Map struct {
	nodes map[string]*Node
	order []string
	lines []string
}

// DefaultEstimateCharsPerLine estimates content length for TOC nodes that
// carry a character count but no end line.
const DefaultEstimateCharsPerLine = 50

// BuildMap flattens a TOC tree into a sid lookup over the document's lines.
// Children are walked independently of their parents' bounds; the TOC
// producer is trusted to keep spans disjoint and nested. Nodes without an
// end line get an estimated span (characterCount / charsPerLine), and fall
// back to a zero-content section when no estimate is possible. Degenerate
// spans are accepted silently; that is a documented precision tradeoff.
func BuildMap(lines []string, roots []*toc.Node, charsPerLine int) *Map {
	if charsPerLine <= 0 {
		charsPerLine = DefaultEstimateCharsPerLine
	}
	m := &Map{nodes: make(map[string]*Node), lines: lines}

	var walk func(n *toc.Node, parentSID string)
	walk = func(n *toc.Node, parentSID string) {
		if n == nil {
			return
		}
		titleLine := n.Line - 1
		contentStart := titleLine + 1
		contentEnd := titleLine // zero-content fallback
		switch {
		case n.EndLine > 0:
			contentEnd = n.EndLine - 1
		case n.CharacterCount > 0:
			if est := n.CharacterCount / charsPerLine; est > 0 {
				contentEnd = contentStart + est - 1
			}
		}
		if contentEnd > len(lines)-1 {
			contentEnd = len(lines) - 1
		}

		node := &Node{
			SID:              n.SID,
			Title:            n.Title,
			Level:            n.Level,
			ParentSID:        parentSID,
			TitleLine:        titleLine,
			ContentStartLine: contentStart,
			ContentEndLine:   contentEnd,
		}
		if contentEnd >= contentStart && titleLine >= 0 && contentStart < len(lines) {
			node.ContentLines = append([]string(nil), lines[contentStart:contentEnd+1]...)
		} else {
			node.ContentEndLine = node.TitleLine
		}

		m.nodes[n.SID] = node
		m.order = append(m.order, n.SID)
		for _, c := range n.Children {
			walk(c, n.SID)
		}
	}
	for _, r := range roots {
		walk(r, "")
	}
	return m
}

// Lookup returns the section for sid, if present.
func (m *Map) Lookup(sid string) (*Node, bool) {
	n, ok := m.nodes[sid]
	return n, ok
}

// SIDs returns every known sid in TOC order.
func (m *Map) SIDs() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of sections in the map.
func (m *Map) Len() int {
	return len(m.nodes)
}

// SplitLines breaks a raw document into its line buffer. A trailing newline
// does not produce a phantom empty last line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" && strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines; the document always ends with a
// final newline.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
