package section

import (
	"fmt"
	"strings"
	"unicode"

	"docedit/internal/intent"
)

// Error codes surfaced per intent. All of these are non-fatal to the batch.
const (
	ErrSIDNotFound      = "SID_NOT_FOUND"
	ErrInvalidSIDFormat = "INVALID_SID_FORMAT"
	ErrLineOutOfRange   = "LINE_OUT_OF_RANGE"
	ErrAmbiguousRange   = "AMBIGUOUS_RANGE"
	ErrEmptySection     = "EMPTY_SECTION_NO_CONTENT"
	ErrUnknownOperation = "UNKNOWN_OPERATION_TYPE"
)

// AbsoluteRange is a 0-based, inclusive span of document lines.
type AbsoluteRange struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Lines returns the number of lines the range covers.
func (r AbsoluteRange) Lines() int {
	return r.EndLine - r.StartLine + 1
}

// Suggestions is the self-correction payload attached to failures, designed
// so an automated caller can fix its parameters and resubmit.
type Suggestions struct {
	SimilarSIDs        []string          `json:"similar_sids,omitempty"`
	CorrectedSID       string            `json:"corrected_sid,omitempty"`
	ValidRange         string            `json:"valid_range,omitempty"`
	CorrectedLineRange *intent.LineRange `json:"corrected_line_range,omitempty"`
	SectionPreview     string            `json:"section_preview,omitempty"`
}

// Location is the outcome of resolving a semantic target into document
// coordinates. InsertionPoint is always serialized: line 0 (inserting before
// the document's first title) is a legitimate point, not an absent one, and
// OperationKind says whether it applies.
type Location struct {
	Found          bool           `json:"found"`
	Range          *AbsoluteRange `json:"range,omitempty"`
	InsertionPoint int            `json:"insertion_point"`
	OperationKind  string         `json:"operation_kind,omitempty"`
	Context        string         `json:"context,omitempty"`
	ErrorCode      string         `json:"error_code,omitempty"`
	Error          string         `json:"error,omitempty"`
	Suggestions    *Suggestions   `json:"suggestions,omitempty"`
}

// LocatorOptions tune suggestion generation.
type LocatorOptions struct {
	MaxSuggestions      int
	SimilarityThreshold float64
	PreviewLines        int
}

// DefaultLocatorOptions returns the tuned defaults.
func DefaultLocatorOptions() LocatorOptions {
	return LocatorOptions{MaxSuggestions: 3, SimilarityThreshold: 0.5, PreviewLines: 10}
}

// Locator resolves semantic targets against one section map. Results are
// memoized for the locator's lifetime since a batch probes the same target
// in its validation pass and again in its execution pass.
type Locator struct {
	sections *Map
	opts     LocatorOptions
	cache    map[string]Location
}

// NewLocator builds a locator over a section map.
func NewLocator(m *Map, opts LocatorOptions) *Locator {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 3
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.5
	}
	if opts.PreviewLines <= 0 {
		opts.PreviewLines = 10
	}
	return &Locator{sections: m, opts: opts, cache: make(map[string]Location)}
}

// Resolve converts a target plus operation type into absolute coordinates.
func (l *Locator) Resolve(target intent.SemanticTarget, opType intent.Type) Location {
	key := cacheKey(target, opType)
	if loc, ok := l.cache[key]; ok {
		return loc
	}
	loc := l.resolve(target, opType)
	l.cache[key] = loc
	return loc
}

func (l *Locator) resolve(target intent.SemanticTarget, opType intent.Type) Location {
	if code, msg, corrected := ValidateSID(target.SID); code != "" {
		return Location{
			ErrorCode:   code,
			Error:       msg,
			Suggestions: &Suggestions{CorrectedSID: corrected},
		}
	}

	sec, ok := l.sections.Lookup(target.SID)
	if !ok {
		return Location{
			ErrorCode: ErrSIDNotFound,
			Error:     fmt.Sprintf("section %q not found", target.SID),
			Suggestions: &Suggestions{
				SimilarSIDs: SimilarSIDs(target.SID, l.sections.SIDs(), l.opts.SimilarityThreshold, l.opts.MaxSuggestions),
			},
		}
	}

	switch opType {
	case intent.ReplaceWithTitle:
		return l.resolveWholeSection(sec)
	case intent.ReplaceContentOnly:
		return l.resolveContentRange(sec, target.LineRange)
	case intent.InsertWithTitle:
		return l.resolveSectionInsertion(sec, target.InsertionPosition)
	case intent.InsertContentOnly:
		return l.resolveContentInsertion(sec, target.LineRange)
	default:
		return Location{
			ErrorCode: ErrUnknownOperation,
			Error:     fmt.Sprintf("unknown operation type %q", opType),
		}
	}
}

// resolveWholeSection spans from the title line through the last content line.
func (l *Locator) resolveWholeSection(sec *Node) Location {
	end := sec.ContentEndLine
	if end < sec.TitleLine {
		end = sec.TitleLine
	}
	return Location{
		Found:         true,
		Range:         &AbsoluteRange{StartLine: sec.TitleLine, EndLine: end},
		OperationKind: intent.KindReplace,
		Context:       sectionContext(sec),
	}
}

func (l *Locator) resolveContentRange(sec *Node, lr *intent.LineRange) Location {
	if !sec.HasContent() {
		return Location{
			ErrorCode: ErrEmptySection,
			Error:     fmt.Sprintf("section %q has no content lines to edit", sec.SID),
			Context:   sectionContext(sec),
		}
	}
	if lr == nil {
		return Location{
			ErrorCode: ErrAmbiguousRange,
			Error:     "line_range is required for content-only replacement",
			Context:   sectionContext(sec),
		}
	}
	if lr.EndLine == 0 {
		// An open-ended range is rejected, never defaulted.
		return Location{
			ErrorCode: ErrAmbiguousRange,
			Error:     "endLine is required for content-only replacement",
			Context:   sectionContext(sec),
			Suggestions: &Suggestions{
				CorrectedLineRange: &intent.LineRange{StartLine: lr.StartLine, EndLine: lr.StartLine},
			},
		}
	}
	n := len(sec.ContentLines)
	if lr.StartLine < 1 || lr.EndLine > n || lr.StartLine > lr.EndLine {
		return l.outOfRange(sec, lr, n)
	}
	return Location{
		Found: true,
		Range: &AbsoluteRange{
			StartLine: sec.ContentStartLine + lr.StartLine - 1,
			EndLine:   sec.ContentStartLine + lr.EndLine - 1,
		},
		OperationKind: intent.KindReplace,
		Context:       sectionContext(sec),
	}
}

func (l *Locator) resolveSectionInsertion(sec *Node, pos intent.Position) Location {
	var point int
	switch pos {
	case intent.PositionBefore:
		point = sec.TitleLine
	case intent.PositionAfter:
		end := sec.ContentEndLine
		if end < sec.TitleLine {
			end = sec.TitleLine
		}
		point = end + 1
	default:
		return Location{
			ErrorCode: ErrUnknownOperation,
			Error:     fmt.Sprintf("insertion_position must be %q or %q, got %q", intent.PositionBefore, intent.PositionAfter, pos),
			Context:   sectionContext(sec),
		}
	}
	return Location{
		Found:          true,
		InsertionPoint: point,
		OperationKind:  intent.KindInsert,
		Context:        sectionContext(sec),
	}
}

func (l *Locator) resolveContentInsertion(sec *Node, lr *intent.LineRange) Location {
	if lr == nil || lr.StartLine == 0 {
		return Location{
			ErrorCode: ErrAmbiguousRange,
			Error:     "line_range.start_line is missing for content insertion",
			Context:   sectionContext(sec),
			Suggestions: &Suggestions{
				CorrectedLineRange: &intent.LineRange{StartLine: 1, EndLine: 1},
			},
		}
	}
	// start_line may point one past the last content line (append at end).
	n := len(sec.ContentLines)
	if lr.StartLine < 1 || lr.StartLine > n+1 {
		return l.outOfRange(sec, lr, n+1)
	}
	return Location{
		Found:          true,
		InsertionPoint: sec.ContentStartLine + lr.StartLine - 1,
		OperationKind:  intent.KindInsert,
		Context:        sectionContext(sec),
	}
}

func (l *Locator) outOfRange(sec *Node, lr *intent.LineRange, maxLine int) Location {
	return Location{
		ErrorCode: ErrLineOutOfRange,
		Error: fmt.Sprintf("line range %d-%d is out of range for section %q (valid: 1-%d)",
			lr.StartLine, lr.EndLine, sec.SID, maxLine),
		Context: sectionContext(sec),
		Suggestions: &Suggestions{
			ValidRange:     fmt.Sprintf("1-%d", maxLine),
			SectionPreview: l.preview(sec),
		},
	}
}

// preview renders up to PreviewLines content lines with 1-based numbering so
// the caller can pick a correct relative line without re-reading the section.
func (l *Locator) preview(sec *Node) string {
	var sb strings.Builder
	for i, line := range sec.ContentLines {
		if i >= l.opts.PreviewLines {
			fmt.Fprintf(&sb, "... (%d more lines)\n", len(sec.ContentLines)-i)
			break
		}
		fmt.Fprintf(&sb, "%d: %s\n", i+1, line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sectionContext(sec *Node) string {
	if !sec.HasContent() {
		return fmt.Sprintf("section %s (%q): title at line %d, no content", sec.SID, sec.Title, sec.TitleLine+1)
	}
	return fmt.Sprintf("section %s (%q): %d content lines at %d-%d",
		sec.SID, sec.Title, len(sec.ContentLines), sec.ContentStartLine+1, sec.ContentEndLine+1)
}

func cacheKey(target intent.SemanticTarget, opType intent.Type) string {
	start, end := 0, 0
	if target.LineRange != nil {
		start, end = target.LineRange.StartLine, target.LineRange.EndLine
	}
	return fmt.Sprintf("%s|%d-%d|%s|%s", target.SID, start, end, target.InsertionPosition, opType)
}

// ValidateSID checks sid format. It returns an empty code when the sid is
// well-formed; otherwise the code, a message, and a corrected sid the caller
// can retry with.
func ValidateSID(sid string) (code, msg, corrected string) {
	if sid == "" {
		return ErrInvalidSIDFormat, "sid is empty", "/"
	}
	if !strings.HasPrefix(sid, "/") {
		return ErrInvalidSIDFormat, fmt.Sprintf("sid %q must begin with /", sid), "/" + sid
	}
	if strings.Contains(sid, "//") {
		return ErrInvalidSIDFormat, fmt.Sprintf("sid %q contains consecutive slashes", sid), collapseSlashes(sid)
	}
	if sid != "/" && strings.HasSuffix(sid, "/") {
		return ErrInvalidSIDFormat, fmt.Sprintf("sid %q must not end with /", sid), strings.TrimRight(sid, "/")
	}
	for _, r := range sid {
		if !validSIDRune(r) {
			return ErrInvalidSIDFormat, fmt.Sprintf("sid %q contains invalid character %q", sid, r), sanitizeSID(sid)
		}
	}
	return "", "", ""
}

// validSIDRune permits letters (any script), digits, hyphen, underscore and
// the path separator.
func validSIDRune(r rune) bool {
	return r == '/' || r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func collapseSlashes(sid string) string {
	for strings.Contains(sid, "//") {
		sid = strings.ReplaceAll(sid, "//", "/")
	}
	if sid != "/" {
		sid = strings.TrimRight(sid, "/")
	}
	return sid
}

func sanitizeSID(sid string) string {
	var sb strings.Builder
	for _, r := range sid {
		if validSIDRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
