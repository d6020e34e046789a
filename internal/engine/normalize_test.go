package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "", NormalizeContent(""))
	assert.Equal(t, "abc\n", NormalizeContent("abc"))
	assert.Equal(t, "abc\n", NormalizeContent("abc\n"))
	assert.Equal(t, "a\nb\n", NormalizeContent("a\nb"))
}

func TestContentLines(t *testing.T) {
	assert.Nil(t, ContentLines(""))
	assert.Equal(t, []string{"abc"}, ContentLines("abc"))
	assert.Equal(t, []string{"a", "b"}, ContentLines("a\nb\n"))
	assert.Equal(t, []string{"a", ""}, ContentLines("a\n\n"))
}

func TestDeletionRange_FullLineConsumesNewline(t *testing.T) {
	lines := []string{"abcdefg", "", "ABCDEFG"}
	r := Range{
		Start: Position{Line: 0, Character: 0},
		End:   Position{Line: 0, Character: len("abcdefg")},
	}
	got := DeletionRange(lines, r)
	assert.Equal(t, Position{Line: 1, Character: 0}, got.End)
}

func TestDeletionRange_LastLineHasNoNewline(t *testing.T) {
	lines := []string{"abcdefg", "ABCDEFG"}
	r := Range{
		Start: Position{Line: 1, Character: 0},
		End:   Position{Line: 1, Character: len("ABCDEFG")},
	}
	assert.Equal(t, r, DeletionRange(lines, r))
}

func TestDeletionRange_PartialMatchStaysInLine(t *testing.T) {
	lines := []string{"abcdefg", "next"}
	r := Range{
		Start: Position{Line: 0, Character: 2},
		End:   Position{Line: 0, Character: 5},
	}
	assert.Equal(t, r, DeletionRange(lines, r))

	// Full width but not starting at column 0 does not spill over either.
	r = Range{
		Start: Position{Line: 0, Character: 1},
		End:   Position{Line: 0, Character: len("abcdefg")},
	}
	assert.Equal(t, r, DeletionRange(lines, r))
}
