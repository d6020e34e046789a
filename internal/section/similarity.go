package section

import "sort"

// levenshtein computes the edit distance between two strings, rune-wise.
// Plain O(n*m) dynamic programming; the id space is tens to low hundreds of
// sections, so no indexing is warranted yet.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns a normalized similarity score in [0, 1]:
// 1 - distance/maxLen.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// SimilarSIDs ranks candidates by similarity to target and returns up to
// limit ids scoring strictly above threshold.
func SimilarSIDs(target string, candidates []string, threshold float64, limit int) []string {
	type scored struct {
		sid   string
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if s := Similarity(target, c); s > threshold {
			ranked = append(ranked, scored{sid: c, score: s})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score == ranked[j].score {
			return ranked[i].sid < ranked[j].sid
		}
		return ranked[i].score > ranked[j].score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.sid)
	}
	return out
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
