package intent

import (
	"fmt"
	"strings"
)

// Type selects the edit operation and whether the payload carries the
// section title line.
type Type string

const (
	ReplaceWithTitle   Type = "replace-with-title"
	ReplaceContentOnly Type = "replace-content-only"
	InsertWithTitle    Type = "insert-with-title"
	InsertContentOnly  Type = "insert-content-only"
)

// Kind is the resolved operation family of a Type.
const (
	KindReplace = "replace"
	KindInsert  = "insert"
)

// Position addresses whole-section insertion relative to an existing section.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

// LineRange is a 1-based, section-relative span. Line 1 is the first content
// line after the section title. EndLine == 0 means the caller left it unset.
type LineRange struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line,omitempty"`
}

// SemanticTarget addresses a location by stable section id instead of
// absolute document coordinates.
type SemanticTarget struct {
	SID               string     `json:"sid"`
	LineRange         *LineRange `json:"line_range,omitempty"`
	InsertionPosition Position   `json:"insertion_position,omitempty"`
}

// EditIntent is one requested edit in a batch.
type EditIntent struct {
	Type         Type           `json:"type"`
	Target       SemanticTarget `json:"target"`
	Content      string         `json:"content"`
	Reason       string         `json:"reason,omitempty"`
	Priority     int            `json:"priority,omitempty"`
	ValidateOnly bool           `json:"validate_only,omitempty"`
}

// Valid reports whether t is one of the four supported intent types.
func (t Type) Valid() bool {
	switch t {
	case ReplaceWithTitle, ReplaceContentOnly, InsertWithTitle, InsertContentOnly:
		return true
	}
	return false
}

// IncludesTitle reports whether the intent payload must carry the heading line.
func (t Type) IncludesTitle() bool {
	return t == ReplaceWithTitle || t == InsertWithTitle
}

// Kind maps the intent type onto the replace/insert operation family.
func (t Type) Kind() string {
	switch t {
	case InsertWithTitle, InsertContentOnly:
		return KindInsert
	default:
		return KindReplace
	}
}

// Validate checks the intent's local invariants: a known type, a target sid,
// and a payload consistent with the with-title/content-only contract.
func (i EditIntent) Validate() error {
	if !i.Type.Valid() {
		return fmt.Errorf("unknown intent type %q", i.Type)
	}
	if strings.TrimSpace(i.Target.SID) == "" {
		return fmt.Errorf("intent target sid is required")
	}
	first := firstNonEmptyLine(i.Content)
	if i.Type.IncludesTitle() {
		if !strings.HasPrefix(strings.TrimSpace(first), "#") {
			return fmt.Errorf("%s content must include the title line", i.Type)
		}
	} else if strings.HasPrefix(strings.TrimSpace(first), "#") {
		return fmt.Errorf("%s content must not include a title line", i.Type)
	}
	return nil
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
