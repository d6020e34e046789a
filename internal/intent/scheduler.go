package intent

import "sort"

// OptimizeExecutionOrder orders a batch so edits invalidate each other as
// little as possible. Groups are keyed by sid and emitted in lexicographic
// sid order; that is a deterministic stand-in for document order, not the
// real thing. Within one sid the intents run in reverse submission order,
// so an edit higher in the section cannot shift a still-pending edit below
// it (bottom-up application over a single line buffer).
func OptimizeExecutionOrder(intents []EditIntent) []EditIntent {
	groups := make(map[string][]EditIntent)
	sids := make([]string, 0, len(intents))
	for _, it := range intents {
		if _, ok := groups[it.Target.SID]; !ok {
			sids = append(sids, it.Target.SID)
		}
		groups[it.Target.SID] = append(groups[it.Target.SID], it)
	}
	sort.Strings(sids)

	out := make([]EditIntent, 0, len(intents))
	for _, sid := range sids {
		group := groups[sid]
		for i := len(group) - 1; i >= 0; i-- {
			out = append(out, group[i])
		}
	}
	return out
}

// Conflict marks an intent whose relative range overlaps an earlier intent
// on the same sid. The bottom-up heuristic only holds for disjoint ranges,
// so overlaps are rejected up front instead of being silently mis-resolved.
type Conflict struct {
	Index    int    // position in the submitted batch
	OtherSID string // sid the overlap occurred on
	OtherIdx int    // earlier submitted intent it collides with
}

// FindOverlaps reports, per submitted batch position, replace intents whose
// explicit relative ranges overlap an earlier intent targeting the same sid.
// Insertions are points, not spans, and never conflict here.
func FindOverlaps(intents []EditIntent) []Conflict {
	type span struct {
		idx        int
		start, end int
	}
	bySID := make(map[string][]span)
	var conflicts []Conflict
	for i, it := range intents {
		if it.Type != ReplaceContentOnly || it.Target.LineRange == nil || it.Target.LineRange.EndLine == 0 {
			continue
		}
		s := span{idx: i, start: it.Target.LineRange.StartLine, end: it.Target.LineRange.EndLine}
		collided := false
		for _, prev := range bySID[it.Target.SID] {
			if s.start <= prev.end && prev.start <= s.end {
				conflicts = append(conflicts, Conflict{Index: i, OtherSID: it.Target.SID, OtherIdx: prev.idx})
				collided = true
				break
			}
		}
		if !collided {
			bySID[it.Target.SID] = append(bySID[it.Target.SID], s)
		}
	}
	return conflicts
}
