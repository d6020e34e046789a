package storage

import (
	"context"
	"fmt"
)

// Store is the document store collaborator the engine depends on: read a
// snapshot, commit one change-set atomically, persist a dirty buffer.
type Store interface {
	// Read returns the current text of the referenced document.
	Read(ctx context.Context, ref string) (string, error)

	// ApplyChangeSet applies the staged edits as one indivisible operation.
	// Either every edit lands or none do.
	ApplyChangeSet(ctx context.Context, ref string, edits []Edit) error

	// Save persists the dirty in-memory buffer for the document.
	Save(ctx context.Context, ref string) error

	Close() error
}

// EditOp is the kind of a staged edit.
type EditOp string

const (
	OpReplace EditOp = "replace"
	OpInsert  EditOp = "insert"
	OpDelete  EditOp = "delete"
)

// Edit is one staged change. Line numbers are 0-based and expressed in the
// coordinate space produced by all earlier edits in the same change-set, so
// a change-set must be applied sequentially, in order.
type Edit struct {
	Op        EditOp   `json:"op"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line,omitempty"` // inclusive; unused for inserts
	Lines     []string `json:"lines,omitempty"`
}

// ApplyEdits runs a change-set over a line buffer and returns the result.
// Implementations share this so the engine's staged coordinates and the
// store's committed state cannot drift apart.
func ApplyEdits(lines []string, edits []Edit) ([]string, error) {
	buf := append([]string(nil), lines...)
	for i, e := range edits {
		switch e.Op {
		case OpInsert:
			if e.StartLine < 0 || e.StartLine > len(buf) {
				return nil, fmt.Errorf("edit %d: insert at line %d outside document of %d lines", i, e.StartLine, len(buf))
			}
			next := make([]string, 0, len(buf)+len(e.Lines))
			next = append(next, buf[:e.StartLine]...)
			next = append(next, e.Lines...)
			next = append(next, buf[e.StartLine:]...)
			buf = next
		case OpReplace, OpDelete:
			if e.StartLine < 0 || e.EndLine >= len(buf) || e.StartLine > e.EndLine {
				return nil, fmt.Errorf("edit %d: %s range %d-%d invalid for document of %d lines", i, e.Op, e.StartLine, e.EndLine, len(buf))
			}
			repl := e.Lines
			if e.Op == OpDelete {
				repl = nil
			}
			next := make([]string, 0, len(buf)-(e.EndLine-e.StartLine+1)+len(repl))
			next = append(next, buf[:e.StartLine]...)
			next = append(next, repl...)
			next = append(next, buf[e.EndLine+1:]...)
			buf = next
		default:
			return nil, fmt.Errorf("edit %d: unknown op %q", i, e.Op)
		}
	}
	return buf, nil
}
