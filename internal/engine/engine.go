// Package engine schedules and applies batches of semantic edit intents
// against a sectioned document, with max-effort per-intent semantics and an
// all-or-nothing final commit.
package engine

import (
	"context"
	"fmt"
	"time"

	"docedit/internal/intent"
	"docedit/internal/section"
	"docedit/internal/storage"
	"docedit/internal/toc"
)

// Options tune a single engine instance.
type Options struct {
	EstimateCharsPerLine int
	Locator              section.LocatorOptions
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		EstimateCharsPerLine: section.DefaultEstimateCharsPerLine,
		Locator:              section.DefaultLocatorOptions(),
	}
}

// Engine runs edit batches against documents held by a store. Engines over
// distinct documents share no state and may run concurrently; one engine
// processes one batch at a time.
type Engine struct {
	store storage.Store
	opts  Options
}

// New builds an engine over a document store.
func New(store storage.Store, opts Options) *Engine {
	if opts.EstimateCharsPerLine <= 0 {
		opts.EstimateCharsPerLine = section.DefaultEstimateCharsPerLine
	}
	return &Engine{store: store, opts: opts}
}

// Execute reads the document snapshot, runs the batch, commits the staged
// change-set atomically and persists the dirty buffer. Per-intent failures
// are recorded in the report; only a failed commit (or save) is returned as
// an error, alongside the report describing what was attempted.
func (e *Engine) Execute(ctx context.Context, ref string, roots []*toc.Node, intents []intent.EditIntent) (*ExecutionReport, error) {
	started := time.Now()
	text, err := e.store.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", ref, err)
	}

	report, changeSet := e.Run(text, roots, intents, started)
	if len(changeSet) == 0 {
		return report, nil
	}

	if err := e.store.ApplyChangeSet(ctx, ref, changeSet); err != nil {
		report.Success = false
		report.ErrorCode = ErrApplyFailed
		report.Error = err.Error()
		return report, fmt.Errorf("atomic apply failed for %s: %w", ref, err)
	}
	if err := e.store.Save(ctx, ref); err != nil {
		return report, fmt.Errorf("failed to persist %s: %w", ref, err)
	}
	return report, nil
}

// Validate resolves every intent without staging anything. The store is
// never touched.
func (e *Engine) Validate(text string, roots []*toc.Node, intents []intent.EditIntent) *ExecutionReport {
	forced := make([]intent.EditIntent, len(intents))
	for i, it := range intents {
		it.ValidateOnly = true
		forced[i] = it
	}
	report, _ := e.Run(text, roots, forced, time.Now())
	return report
}

// Run executes a batch purely in memory against the given snapshot and
// returns the report plus the staged change-set. The section map, locator
// and offset state are created here and discarded with the call; nothing
// outlives the batch.
func (e *Engine) Run(text string, roots []*toc.Node, batch []intent.EditIntent, started time.Time) (*ExecutionReport, []storage.Edit) {
	lines := section.SplitLines(text)
	m := section.BuildMap(lines, roots, e.opts.EstimateCharsPerLine)
	locator := section.NewLocator(m, e.opts.Locator)

	// Overlapping relative ranges inside one section break the bottom-up
	// scheduling assumption, so the later submission is rejected up front.
	var failed []FailedIntent
	conflicted := make(map[int]bool)
	for _, c := range intent.FindOverlaps(batch) {
		conflicted[c.Index] = true
		failed = append(failed, FailedIntent{
			Intent:    batch[c.Index],
			ErrorCode: ErrOverlappingRanges,
			Error: fmt.Sprintf("relative range overlaps intent %d on section %s",
				c.OtherIdx, c.OtherSID),
			Suggestion: "split the batch so ranges within one section are disjoint and resubmit",
			CanRetry:   true,
		})
	}
	runnable := make([]intent.EditIntent, 0, len(batch))
	for i, it := range batch {
		if !conflicted[i] {
			runnable = append(runnable, it)
		}
	}

	ordered := intent.OptimizeExecutionOrder(runnable)
	exec := NewExecutor(lines, locator)
	applied, execFailed := exec.Run(ordered)
	failed = append(failed, execFailed...)

	report := buildReport(len(batch), applied, failed, started)
	return report, exec.ChangeSet()
}
