package toc

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"
)

// BuildFromMarkdown derives a TOC tree from raw markdown by scanning ATX
// heading lines. Sids are slash-joined slugs of the heading path, so they
// stay stable across renumbering. Content before the first heading is not
// represented; the engine only addresses titled sections.
func BuildFromMarkdown(content string) []*Node {
	lines := countLines(content)
	var roots []*Node
	var stack []*Node
	used := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		level, title := parseHeading(line)
		if level == 0 {
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.CharacterCount += len(line)
				top.WordCount += len(strings.Fields(line))
				if strings.TrimSpace(line) != "" {
					top.HasContent = true
				}
			}
			continue
		}

		// Close every open section at the same or deeper level.
		for len(stack) > 0 && stack[len(stack)-1].Level >= level {
			stack[len(stack)-1].EndLine = lineNo - 1
			stack = stack[:len(stack)-1]
		}

		parentSID := ""
		if len(stack) > 0 {
			parentSID = stack[len(stack)-1].SID
		}
		slug := Slugify(title)
		sid := parentSID + "/" + slug
		if n := used[sid]; n > 0 {
			sid = fmt.Sprintf("%s-%d", sid, n+1)
		}
		used[parentSID+"/"+slug]++

		node := &Node{
			SID:   sid,
			Title: title,
			Level: level,
			Line:  lineNo,
		}
		if len(stack) > 0 {
			stack[len(stack)-1].Children = append(stack[len(stack)-1].Children, node)
		} else {
			roots = append(roots, node)
		}
		stack = append(stack, node)
	}

	for _, n := range stack {
		n.EndLine = lines
	}
	// Parents span through their last child.
	var extend func(n *Node) int
	extend = func(n *Node) int {
		end := n.EndLine
		for _, c := range n.Children {
			if ce := extend(c); ce > end {
				end = ce
			}
		}
		n.EndLine = end
		return end
	}
	for _, r := range roots {
		extend(r)
	}
	return roots
}

// parseHeading returns (level, title) for an ATX heading line, or (0, "").
func parseHeading(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for _, ch := range trimmed {
		if ch == '#' {
			level++
		} else {
			break
		}
	}
	if level == 0 || level > 6 || len(trimmed) <= level || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level:])
}

// Slugify converts a heading title into a sid segment: lowercase, letters
// and digits kept, everything else collapsed into single hyphens.
func Slugify(title string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
