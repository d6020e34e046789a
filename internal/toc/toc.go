package toc

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Node is one entry in a document's table of contents. The tree is produced
// by an upstream parser (or by BuildFromMarkdown for standalone use) and is
// treated as read-only input by the edit engine.
type Node struct {
	SID            string  `json:"sid"`
	Title          string  `json:"title"`
	Level          int     `json:"level"`
	Line           int     `json:"line"`                      // 1-based absolute line of the title
	EndLine        int     `json:"end_line,omitempty"`        // 1-based absolute last line, 0 when unknown
	WordCount      int     `json:"word_count,omitempty"`
	CharacterCount int     `json:"character_count,omitempty"`
	HasContent     bool    `json:"has_content,omitempty"`
	Children       []*Node `json:"children,omitempty"`
}

// Load reads a TOC tree from a JSON file holding an array of root nodes.
func Load(path string) ([]*Node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var roots []*Node
	if err := json.Unmarshal(b, &roots); err != nil {
		return nil, fmt.Errorf("failed to decode TOC file %s: %w", path, err)
	}
	return roots, nil
}

// Validate checks the structural invariants every node must satisfy:
// a globally unique sid that starts with "/", has no empty segments and no
// trailing slash, and a positive title line.
func Validate(roots []*Node) error {
	seen := make(map[string]bool)
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n == nil {
			return fmt.Errorf("toc contains a nil node")
		}
		if !strings.HasPrefix(n.SID, "/") {
			return fmt.Errorf("sid %q must begin with /", n.SID)
		}
		if n.SID != "/" && strings.HasSuffix(n.SID, "/") {
			return fmt.Errorf("sid %q must not end with /", n.SID)
		}
		if strings.Contains(n.SID, "//") {
			return fmt.Errorf("sid %q contains an empty segment", n.SID)
		}
		if seen[n.SID] {
			return fmt.Errorf("duplicate sid: %s", n.SID)
		}
		seen[n.SID] = true
		if n.Line < 1 {
			return fmt.Errorf("sid %s has invalid title line %d", n.SID, n.Line)
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r); err != nil {
			return err
		}
	}
	return nil
}

// Flatten returns every node in the tree in depth-first order.
func Flatten(roots []*Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
