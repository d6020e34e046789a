package engine

import (
	"testing"

	"docedit/internal/intent"
	"docedit/internal/section"
	"docedit/internal/toc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notesDoc = `# Notes
alpha
beta
gamma
delta
epsilon
`

const guideDoc = `# Guide
intro one
intro two
## Setup
step one
step two
## Usage
run it
check output
`

func newExecutor(t *testing.T, doc string) *Executor {
	t.Helper()
	lines := section.SplitLines(doc)
	m := section.BuildMap(lines, toc.BuildFromMarkdown(doc), section.DefaultEstimateCharsPerLine)
	return NewExecutor(lines, section.NewLocator(m, section.DefaultLocatorOptions()))
}

func runBatch(t *testing.T, doc string, batch []intent.EditIntent) (*Executor, []AppliedIntent, []FailedIntent) {
	t.Helper()
	exec := newExecutor(t, doc)
	applied, failed := exec.Run(intent.OptimizeExecutionOrder(batch))
	return exec, applied, failed
}

func contentReplace(sid string, start, end int, content string) intent.EditIntent {
	return intent.EditIntent{
		Type: intent.ReplaceContentOnly,
		Target: intent.SemanticTarget{
			SID:       sid,
			LineRange: &intent.LineRange{StartLine: start, EndLine: end},
		},
		Content: content,
	}
}

func contentInsert(sid string, start int, content string) intent.EditIntent {
	return intent.EditIntent{
		Type: intent.InsertContentOnly,
		Target: intent.SemanticTarget{
			SID:       sid,
			LineRange: &intent.LineRange{StartLine: start},
		},
		Content: content,
	}
}

func TestExecutor_ReplaceContentLine(t *testing.T) {
	exec, applied, failed := runBatch(t, notesDoc, []intent.EditIntent{
		contentReplace("/notes", 2, 2, "BETA"),
	})
	require.Empty(t, failed)
	require.Len(t, applied, 1)
	assert.Equal(t, []string{"# Notes", "alpha", "BETA", "gamma", "delta", "epsilon"}, exec.Lines())
	assert.Len(t, exec.ChangeSet(), 1)
}

// An edit below a pending edit never shifts it: with intents on lines 2 and
// 5 submitted top-to-bottom, the line-5 edit runs first and grows the
// section, and the line-2 edit still lands at line 2 unadjusted.
func TestExecutor_LowerEditDoesNotShiftUpperEdit(t *testing.T) {
	exec, applied, failed := runBatch(t, notesDoc, []intent.EditIntent{
		contentReplace("/notes", 2, 2, "B"),
		contentReplace("/notes", 5, 5, "E1\nE2\nE3"),
	})
	require.Empty(t, failed)
	require.Len(t, applied, 2)

	// Reverse submission order: the line-5 edit executed first.
	assert.Equal(t, 5, applied[0].Intent.Target.LineRange.StartLine)
	assert.Equal(t, 2, applied[1].Intent.Target.LineRange.StartLine)
	assert.Nil(t, applied[1].AdjustedIntent)

	assert.Equal(t, []string{"# Notes", "alpha", "B", "gamma", "delta", "E1", "E2", "E3"}, exec.Lines())
}

// When an edit above a pending one has already landed (bottom-first
// submission), the pending range is shifted by the accumulated drift and the
// adjustment is reported.
func TestExecutor_AutoAdjustAfterEditAbove(t *testing.T) {
	exec, applied, failed := runBatch(t, notesDoc, []intent.EditIntent{
		contentReplace("/notes", 5, 5, "E"),
		contentReplace("/notes", 2, 2, ""), // deletion, submitted last so it runs first
	})
	require.Empty(t, failed)
	require.Len(t, applied, 2)

	deletion := applied[0]
	assert.Equal(t, 2, deletion.Intent.Target.LineRange.StartLine)
	require.NotNil(t, deletion.DeletedSpan)
	// Deleting the full line consumes its trailing newline.
	assert.Equal(t, Position{Line: 2, Character: 0}, deletion.DeletedSpan.Start)
	assert.Equal(t, Position{Line: 3, Character: 0}, deletion.DeletedSpan.End)

	replaced := applied[1]
	require.NotNil(t, replaced.AdjustedIntent)
	assert.Equal(t, &intent.LineRange{StartLine: 4, EndLine: 4}, replaced.AdjustedIntent.Target.LineRange)
	assert.Contains(t, replaced.AdjustmentReason, "-1")
	// The original intent is reported unmodified.
	assert.Equal(t, 5, replaced.Intent.Target.LineRange.StartLine)

	assert.Equal(t, []string{"# Notes", "alpha", "gamma", "delta", "E"}, exec.Lines())
}

// Batches over disjoint sections converge to the same document regardless of
// submission order.
func TestExecutor_DisjointSections_OrderInvariant(t *testing.T) {
	a := contentReplace("/guide/setup", 1, 1, "STEP ONE")
	b := contentReplace("/guide/usage", 2, 2, "CHECK")

	exec1, _, failed1 := runBatch(t, guideDoc, []intent.EditIntent{a, b})
	require.Empty(t, failed1)
	exec2, _, failed2 := runBatch(t, guideDoc, []intent.EditIntent{b, a})
	require.Empty(t, failed2)

	want := []string{"# Guide", "intro one", "intro two", "## Setup", "STEP ONE", "step two", "## Usage", "run it", "CHECK"}
	assert.Equal(t, want, exec1.Lines())
	assert.Equal(t, want, exec2.Lines())
}

// Growth in a section above shifts the staged coordinates of edits in
// sections below it.
func TestExecutor_CrossSectionDrift(t *testing.T) {
	exec, applied, failed := runBatch(t, guideDoc, []intent.EditIntent{
		contentInsert("/guide/setup", 3, "added one\nadded two"),
		contentReplace("/guide/usage", 1, 1, "RUN"),
	})
	require.Empty(t, failed)
	require.Len(t, applied, 2)

	assert.Equal(t, []string{
		"# Guide", "intro one", "intro two",
		"## Setup", "step one", "step two", "added one", "added two",
		"## Usage", "RUN", "check output",
	}, exec.Lines())
}

// Appending a sibling section after a grown section lands below the new
// content in either submission order.
func TestExecutor_InsertSectionAfterGrownSection(t *testing.T) {
	grow := contentInsert("/guide/setup", 3, "step three")
	sibling := intent.EditIntent{
		Type: intent.InsertWithTitle,
		Target: intent.SemanticTarget{
			SID:               "/guide/setup",
			InsertionPosition: intent.PositionAfter,
		},
		Content: "## Teardown\nundo it\n",
	}

	want := []string{
		"# Guide", "intro one", "intro two",
		"## Setup", "step one", "step two", "step three",
		"## Teardown", "undo it",
		"## Usage", "run it", "check output",
	}

	exec1, _, failed1 := runBatch(t, guideDoc, []intent.EditIntent{grow, sibling})
	require.Empty(t, failed1)
	assert.Equal(t, want, exec1.Lines())

	exec2, _, failed2 := runBatch(t, guideDoc, []intent.EditIntent{sibling, grow})
	require.Empty(t, failed2)
	assert.Equal(t, want, exec2.Lines())
}

// A sibling appended after one section lands exactly where the next section
// begins; a later edit of that next section must shift past it instead of
// overwriting the fresh lines.
func TestExecutor_InsertAfterThenEditFollowingSection(t *testing.T) {
	exec, applied, failed := runBatch(t, guideDoc, []intent.EditIntent{
		{
			Type: intent.InsertWithTitle,
			Target: intent.SemanticTarget{
				SID:               "/guide/setup",
				InsertionPosition: intent.PositionAfter,
			},
			Content: "## Teardown\nundo it\n",
		},
		{
			Type:    intent.ReplaceWithTitle,
			Target:  intent.SemanticTarget{SID: "/guide/usage"},
			Content: "## Usage v2\ngo\n",
		},
	})
	require.Empty(t, failed)
	require.Len(t, applied, 2)
	assert.Equal(t, []string{
		"# Guide", "intro one", "intro two",
		"## Setup", "step one", "step two",
		"## Teardown", "undo it",
		"## Usage v2", "go",
	}, exec.Lines())
}

// Same boundary for a content-only edit of the following section.
func TestExecutor_InsertAfterThenReplaceFollowingContent(t *testing.T) {
	exec, _, failed := runBatch(t, guideDoc, []intent.EditIntent{
		{
			Type: intent.InsertWithTitle,
			Target: intent.SemanticTarget{
				SID:               "/guide/setup",
				InsertionPosition: intent.PositionAfter,
			},
			Content: "## Teardown\nundo it\n",
		},
		contentReplace("/guide/usage", 1, 1, "RUN"),
	})
	require.Empty(t, failed)
	assert.Equal(t, []string{
		"# Guide", "intro one", "intro two",
		"## Setup", "step one", "step two",
		"## Teardown", "undo it",
		"## Usage", "RUN", "check output",
	}, exec.Lines())
}

func TestExecutor_ReplaceWholeSection(t *testing.T) {
	exec, applied, failed := runBatch(t, guideDoc, []intent.EditIntent{
		{
			Type:    intent.ReplaceWithTitle,
			Target:  intent.SemanticTarget{SID: "/guide/setup"},
			Content: "## Setup v2\nonly step\n",
		},
	})
	require.Empty(t, failed)
	require.Len(t, applied, 1)
	assert.Equal(t, []string{
		"# Guide", "intro one", "intro two",
		"## Setup v2", "only step",
		"## Usage", "run it", "check output",
	}, exec.Lines())
}

// A whole-section replace that runs before a content edit of the same
// section shifts the pending range by the section's net line change, keeping
// it inside the rewritten section instead of bleeding into the next one.
func TestExecutor_ContentEditAfterWholeSectionReplace(t *testing.T) {
	t.Run("shrunk section keeps the edit inside it", func(t *testing.T) {
		exec, applied, failed := runBatch(t, guideDoc, []intent.EditIntent{
			contentReplace("/guide/setup", 2, 2, "tweaked"),
			{
				Type:    intent.ReplaceWithTitle,
				Target:  intent.SemanticTarget{SID: "/guide/setup"},
				Content: "## Setup v2\nonly step\n",
			},
		})
		require.Empty(t, failed)
		require.Len(t, applied, 2)

		replaced := applied[1]
		require.NotNil(t, replaced.AdjustedIntent)
		assert.Equal(t, &intent.LineRange{StartLine: 1, EndLine: 1}, replaced.AdjustedIntent.Target.LineRange)

		assert.Equal(t, []string{
			"# Guide", "intro one", "intro two",
			"## Setup v2", "tweaked",
			"## Usage", "run it", "check output",
		}, exec.Lines())
	})

	// When the rewrite grows the section, the shifted range can exceed the
	// snapshot bounds; that surfaces as a retryable out-of-range failure.
	t.Run("grown section fails retryably", func(t *testing.T) {
		_, applied, failed := runBatch(t, guideDoc, []intent.EditIntent{
			contentReplace("/guide/setup", 2, 2, "tweaked"),
			{
				Type:    intent.ReplaceWithTitle,
				Target:  intent.SemanticTarget{SID: "/guide/setup"},
				Content: "## Setup v2\nstep a\nstep b\nstep c\n",
			},
		})
		require.Len(t, applied, 1)
		require.Len(t, failed, 1)
		assert.Equal(t, section.ErrLineOutOfRange, failed[0].ErrorCode)
		assert.True(t, failed[0].CanRetry)
		// The failure reports the original, pre-adjustment range.
		assert.Equal(t, 2, failed[0].Intent.Target.LineRange.StartLine)
	})
}

func TestExecutor_ValidateOnly(t *testing.T) {
	it := contentReplace("/notes", 2, 2, "BETA")
	it.ValidateOnly = true

	exec, applied, failed := runBatch(t, notesDoc, []intent.EditIntent{it})
	require.Empty(t, failed)
	require.Len(t, applied, 1)
	assert.True(t, applied[0].ValidateOnly)
	assert.True(t, applied[0].Location.Found)
	assert.Empty(t, exec.ChangeSet())
	assert.Equal(t, section.SplitLines(notesDoc), exec.Lines())
}

func TestExecutor_MaxEffort(t *testing.T) {
	exec, applied, failed := runBatch(t, notesDoc, []intent.EditIntent{
		contentReplace("/nope", 1, 1, "x"),
		contentReplace("/notes", 1, 1, "ALPHA"),
	})
	require.Len(t, applied, 1)
	require.Len(t, failed, 1)
	assert.Equal(t, section.ErrSIDNotFound, failed[0].ErrorCode)
	assert.Equal(t, "ALPHA", exec.Lines()[1])
}

func TestExecutor_FailureDiagnostics(t *testing.T) {
	t.Run("sid not found is retryable", func(t *testing.T) {
		_, _, failed := runBatch(t, notesDoc, []intent.EditIntent{
			contentReplace("/nope", 1, 1, "x"),
		})
		require.Len(t, failed, 1)
		assert.Equal(t, section.ErrSIDNotFound, failed[0].ErrorCode)
		assert.True(t, failed[0].CanRetry)
		assert.Contains(t, failed[0].Suggestion, "resubmit")
	})

	t.Run("out of range carries valid range", func(t *testing.T) {
		_, _, failed := runBatch(t, notesDoc, []intent.EditIntent{
			contentReplace("/notes", 1, 50, "x"),
		})
		require.Len(t, failed, 1)
		assert.Equal(t, section.ErrLineOutOfRange, failed[0].ErrorCode)
		assert.True(t, failed[0].CanRetry)
		require.NotNil(t, failed[0].Suggestions)
		assert.Equal(t, "1-5", failed[0].Suggestions.ValidRange)
		assert.NotEmpty(t, failed[0].Suggestions.SectionPreview)
	})

	t.Run("title in content-only payload is not retryable", func(t *testing.T) {
		_, _, failed := runBatch(t, notesDoc, []intent.EditIntent{
			contentReplace("/notes", 1, 1, "# Smuggled Heading"),
		})
		require.Len(t, failed, 1)
		assert.Equal(t, ErrInvalidContent, failed[0].ErrorCode)
		assert.False(t, failed[0].CanRetry)
	})

	t.Run("unknown operation type", func(t *testing.T) {
		_, _, failed := runBatch(t, notesDoc, []intent.EditIntent{
			{
				Type:    intent.Type("merge-sections"),
				Target:  intent.SemanticTarget{SID: "/notes"},
				Content: "x",
			},
		})
		require.Len(t, failed, 1)
		assert.Equal(t, section.ErrUnknownOperation, failed[0].ErrorCode)
	})
}
