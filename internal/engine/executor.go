package engine

import (
	"fmt"
	"strings"

	"docedit/internal/intent"
	"docedit/internal/section"
	"docedit/internal/storage"
)

// AppliedIntent is one successfully resolved (and, unless validate-only,
// staged) intent.
type AppliedIntent struct {
	Intent           intent.EditIntent  `json:"intent"`
	AdjustedIntent   *intent.EditIntent `json:"adjusted_intent,omitempty"`
	AdjustmentReason string             `json:"adjustment_reason,omitempty"`
	ExecutionOrder   int                `json:"execution_order"`
	Location         section.Location   `json:"location"`
	DeletedSpan      *Range             `json:"deleted_span,omitempty"`
	ValidateOnly     bool               `json:"validate_only,omitempty"`
}

// FailedIntent retains the original, pre-adjustment intent plus everything
// an automated caller needs to decide on a corrected resubmission.
type FailedIntent struct {
	Intent      intent.EditIntent    `json:"intent"`
	ErrorCode   string               `json:"error_code"`
	Error       string               `json:"error"`
	Suggestion  string               `json:"suggestion,omitempty"`
	Suggestions *section.Suggestions `json:"suggestions,omitempty"`
	CanRetry    bool                 `json:"can_retry"`
}

// appliedEdit records one landed edit's position and line-count delta, the
// raw material for drift correction of still-pending intents.
type appliedEdit struct {
	sid      string
	relStart int // 1-based section-relative start; 0 for whole-section ops
	absStart int // snapshot-absolute start line
	delta    int
	insert   bool
	above    bool // whole-section op anchored at or above the title line
}

// Executor applies an ordered batch against a single mutable line buffer,
// tracking line-count drift per section and staging every landed edit into
// one change-set. Strictly sequential; correctness depends on it.
//
// Drift is corrected in two layers. Within a section, an already-applied
// edit shifts a pending relative range only when it sits strictly above it;
// an edit below a pending one never moves it, which is what makes the
// scheduler's bottom-up order cheap. Across sections, every landed delta
// above a target's snapshot position shifts the staged buffer coordinates.
type Executor struct {
	locator *section.Locator
	buf     []string
	log     []appliedEdit
	staged  []storage.Edit
}

// NewExecutor builds an executor over the document snapshot the locator's
// section map was built from.
func NewExecutor(lines []string, locator *section.Locator) *Executor {
	return &Executor{
		locator: locator,
		buf:     append([]string(nil), lines...),
	}
}

// Run executes the scheduled intents with max-effort semantics: a failing
// intent is recorded and never blocks its siblings.
func (x *Executor) Run(ordered []intent.EditIntent) ([]AppliedIntent, []FailedIntent) {
	var applied []AppliedIntent
	var failed []FailedIntent
	for i, it := range ordered {
		a, f := x.execute(it, i)
		if f != nil {
			failed = append(failed, *f)
			continue
		}
		applied = append(applied, *a)
	}
	return applied, failed
}

// ChangeSet returns the staged edits in application order.
func (x *Executor) ChangeSet() []storage.Edit {
	return x.staged
}

// Lines returns the buffer state after all staged edits.
func (x *Executor) Lines() []string {
	return append([]string(nil), x.buf...)
}

func (x *Executor) execute(it intent.EditIntent, order int) (*AppliedIntent, *FailedIntent) {
	original := it

	if err := it.Validate(); err != nil {
		code := ErrInvalidContent
		if !it.Type.Valid() {
			code = section.ErrUnknownOperation
		}
		return nil, &FailedIntent{
			Intent:     original,
			ErrorCode:  code,
			Error:      err.Error(),
			Suggestion: suggestionForError(err.Error()),
			CanRetry:   retryableError(err.Error()),
		}
	}

	// Layer one of interference correction: shift the relative range by the
	// cumulative drift of earlier same-section edits that sit above it.
	var adjusted *intent.EditIntent
	var adjustmentReason string
	if it.Target.LineRange != nil {
		drift := x.relativeDrift(it.Target.SID, it.Target.LineRange.StartLine, it.Type.Kind() == intent.KindInsert)
		if drift != 0 {
			shifted := it
			lr := *it.Target.LineRange
			lr.StartLine += drift
			if lr.EndLine != 0 {
				lr.EndLine += drift
			}
			shifted.Target.LineRange = &lr
			adjusted = &shifted
			adjustmentReason = fmt.Sprintf("line range shifted by %+d to absorb earlier edits in %s", drift, it.Target.SID)
			it = shifted
		}
	}

	loc := x.locator.Resolve(it.Target, it.Type)
	if !loc.Found {
		return nil, &FailedIntent{
			Intent:      original,
			ErrorCode:   loc.ErrorCode,
			Error:       loc.Error,
			Suggestion:  suggestionForError(loc.Error),
			Suggestions: loc.Suggestions,
			CanRetry:    retryableError(loc.Error),
		}
	}

	out := &AppliedIntent{
		Intent:           original,
		AdjustedIntent:   adjusted,
		AdjustmentReason: adjustmentReason,
		ExecutionOrder:   order,
		Location:         loc,
		ValidateOnly:     it.ValidateOnly,
	}
	if it.ValidateOnly {
		return out, nil
	}

	edit, entry := x.stageable(it, loc)
	buf, err := storage.ApplyEdits(x.buf, []storage.Edit{edit})
	if err != nil {
		// Resolution and the buffer disagree; never stage a corrupting edit.
		return nil, &FailedIntent{
			Intent:    original,
			ErrorCode: ErrStagingConflict,
			Error:     err.Error(),
			CanRetry:  false,
		}
	}
	if edit.Op == storage.OpDelete {
		span := x.deletedSpan(edit)
		out.DeletedSpan = &span
	}
	x.buf = buf
	x.staged = append(x.staged, edit)
	x.log = append(x.log, entry)
	return out, nil
}

// stageable translates a resolved location from snapshot coordinates into
// the current buffer and builds the staged edit plus its drift log entry.
func (x *Executor) stageable(it intent.EditIntent, loc section.Location) (storage.Edit, appliedEdit) {
	newLines := ContentLines(it.Content)
	relStart := 0
	if it.Target.LineRange != nil {
		relStart = it.Target.LineRange.StartLine
	}

	if loc.OperationKind == intent.KindInsert {
		point := loc.InsertionPoint
		bufPoint := point + x.crossDrift(it.Target.SID, point)
		if it.Type == intent.InsertWithTitle && it.Target.InsertionPosition == intent.PositionAfter {
			// The section may have grown; append past its current extent.
			bufPoint += x.sectionDrift(it.Target.SID)
		}
		edit := storage.Edit{Op: storage.OpInsert, StartLine: bufPoint, Lines: newLines}
		entry := appliedEdit{
			sid:      it.Target.SID,
			relStart: relStart,
			absStart: point,
			delta:    len(newLines),
			insert:   true,
			above:    it.Type == intent.InsertWithTitle && it.Target.InsertionPosition == intent.PositionBefore,
		}
		return edit, entry
	}

	cross := x.crossDrift(it.Target.SID, loc.Range.StartLine)
	start := loc.Range.StartLine + cross
	end := loc.Range.EndLine + cross
	oldCount := loc.Range.Lines()
	if it.Type == intent.ReplaceWithTitle {
		// Whole-section spans stretch over drift the section accumulated.
		grown := x.sectionDrift(it.Target.SID)
		end += grown
		oldCount += grown
	}

	var edit storage.Edit
	if len(newLines) == 0 {
		edit = storage.Edit{Op: storage.OpDelete, StartLine: start, EndLine: end}
	} else {
		edit = storage.Edit{Op: storage.OpReplace, StartLine: start, EndLine: end, Lines: newLines}
	}
	entry := appliedEdit{
		sid:      it.Target.SID,
		relStart: relStart,
		absStart: loc.Range.StartLine,
		delta:    len(newLines) - oldCount,
		above:    it.Type == intent.ReplaceWithTitle,
	}
	return edit, entry
}

// relativeDrift sums deltas of applied same-section edits above the pending
// relative position. Insertions at the same point stack in execution order,
// so they count as "above" for a pending insert. Whole-section edits carry no
// relative anchor; the ones anchored at the title (section replace, sibling
// insert-before) sit above every content line and count, while a sibling
// appended after the section sits below all of it and never does.
func (x *Executor) relativeDrift(sid string, relStart int, pendingInsert bool) int {
	drift := 0
	for _, e := range x.log {
		if e.sid != sid {
			continue
		}
		switch {
		case e.relStart == 0:
			if e.above {
				drift += e.delta
			}
		case e.relStart < relStart, pendingInsert && e.insert && e.relStart == relStart:
			drift += e.delta
		}
	}
	return drift
}

// crossDrift sums deltas of edits landed in other sections above the given
// snapshot position. An insertion from another section that landed exactly at
// the target position sits above it in the buffer (an appended sibling ends
// where the next section begins), so inserts count at equal positions too;
// replaces and deletes at an equal position would mean overlapping sections
// and stay excluded.
func (x *Executor) crossDrift(sid string, absStart int) int {
	drift := 0
	for _, e := range x.log {
		if e.sid == sid {
			continue
		}
		if e.absStart < absStart || (e.insert && e.absStart == absStart) {
			drift += e.delta
		}
	}
	return drift
}

// sectionDrift is the total line-count change a section accumulated so far.
func (x *Executor) sectionDrift(sid string) int {
	drift := 0
	for _, e := range x.log {
		if e.sid == sid {
			drift += e.delta
		}
	}
	return drift
}

// deletedSpan records, character-precisely, what a full-range deletion
// consumed, including the trailing newline of its last line.
func (x *Executor) deletedSpan(edit storage.Edit) Range {
	endChar := 0
	if edit.EndLine >= 0 && edit.EndLine < len(x.buf) {
		endChar = len(x.buf[edit.EndLine])
	}
	return DeletionRange(x.buf, Range{
		Start: Position{Line: edit.StartLine, Character: 0},
		End:   Position{Line: edit.EndLine, Character: endChar},
	})
}

// suggestionForError pattern-matches the failure message into a concrete
// next step for the caller.
func suggestionForError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"):
		return "re-check the available section ids (see similar_sids) and resubmit with an existing sid"
	case strings.Contains(lower, "out of range"):
		return "fetch the section's valid line numbers (see valid_range and section_preview) and resubmit"
	case strings.Contains(lower, "missing"), strings.Contains(lower, "required"):
		return "fill in the required target field and resubmit"
	default:
		return ""
	}
}

// retryableError reports whether a corrected resubmission can succeed:
// true for not-found, out-of-range and missing-field failures.
func retryableError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "out of range") ||
		strings.Contains(lower, "missing") ||
		strings.Contains(lower, "required")
}
