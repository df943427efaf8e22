package validator

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// fuzzyConfig tunes the missing/extra reconciliation pass
type fuzzyConfig struct {
	GroupMax       int     // Max segments concatenated per fuzzy group
	LevRatio       float64 // Levenshtein similarity threshold
	TokenOverlap   float64 // Jaccard token overlap threshold
	FuzzyThreshold float64 // Confidence for a match to count toward adjusted coverage
}

// matchResult is the outcome of reconciling missing and extra segments
type matchResult struct {
	Missing   []string
	Extra     []string
	Method    string  // "exact" or "fuzzy"
	Confident int     // Matches at or above the confidence threshold
	Total     int     // All reconciled matches
	BestScore float64 // Highest match confidence seen
}

// reconcile attempts to pair missing segments (in source, not in notion)
// with extra segments (in notion, not in source). Exact consecutive-group
// matches run first, then fuzzy group matches, then single-segment fuzzy
// matches under relaxed length guards.
func reconcile(missing, extra []string, cfg fuzzyConfig) matchResult {
	result := matchResult{Method: "exact"}

	missing, extra, exactMatched := matchExactGroups(missing, extra)
	result.Total += exactMatched
	result.Confident += exactMatched

	groupMax := cfg.GroupMax
	if groupMax < 2 {
		groupMax = 2
	}

	fuzzyMatched := 0
	missing, extra, fuzzyMatched = matchFuzzyGroups(missing, extra, groupMax, cfg, &result)
	if fuzzyMatched > 0 {
		result.Method = "fuzzy"
	}

	missing, extra, singleMatched := matchFuzzySingles(missing, extra, cfg, &result)
	if singleMatched > 0 {
		result.Method = "fuzzy"
	}

	result.Missing = missing
	result.Extra = extra
	return result
}

// matchExactGroups removes pairs where 2..4 consecutive source segments
// concatenated equal one notion segment, or vice versa
func matchExactGroups(missing, extra []string) ([]string, []string, int) {
	matched := 0

	for size := 2; size <= 4; size++ {
		missing, extra, matched = groupPass(missing, extra, size, matched, exactEqual)
		extra, missing, matched = groupPass(extra, missing, size, matched, exactEqual)
	}
	return missing, extra, matched
}

func exactEqual(group, single string) (bool, float64) {
	if group == single {
		return true, 1.0
	}
	return false, 0
}

// groupPass concatenates runs of `size` segments from groups and removes
// pairs matching a single segment in singles
func groupPass(groups, singles []string, size, matched int, match func(group, single string) (bool, float64)) ([]string, []string, int) {
	i := 0
	for i+size <= len(groups) {
		concat := strings.Join(groups[i:i+size], " ")
		found := -1
		for j, single := range singles {
			if ok, _ := match(concat, single); ok {
				found = j
				break
			}
		}
		if found >= 0 {
			groups = append(groups[:i], groups[i+size:]...)
			singles = append(singles[:found], singles[found+1:]...)
			matched++
			continue
		}
		i++
	}
	return groups, singles, matched
}

// matchFuzzyGroups pairs concatenated groups against single segments using
// similarity thresholds and a length-ratio guard of [0.75, 1.25]
func matchFuzzyGroups(missing, extra []string, groupMax int, cfg fuzzyConfig, result *matchResult) ([]string, []string, int) {
	matched := 0
	fuzzyMatch := func(group, single string) (bool, float64) {
		return similar(group, single, cfg, 0.75, 1.25)
	}

	for size := 2; size <= groupMax; size++ {
		var m int
		missing, extra, m = fuzzyGroupPass(missing, extra, size, fuzzyMatch, cfg, result)
		matched += m
		extra, missing, m = fuzzyGroupPass(extra, missing, size, fuzzyMatch, cfg, result)
		matched += m
	}
	return missing, extra, matched
}

func fuzzyGroupPass(groups, singles []string, size int, match func(a, b string) (bool, float64), cfg fuzzyConfig, result *matchResult) ([]string, []string, int) {
	matched := 0
	i := 0
	for i+size <= len(groups) {
		concat := strings.Join(groups[i:i+size], " ")
		found := -1
		score := 0.0
		for j, single := range singles {
			if ok, s := match(concat, single); ok {
				found = j
				score = s
				break
			}
		}
		if found >= 0 {
			groups = append(groups[:i], groups[i+size:]...)
			singles = append(singles[:found], singles[found+1:]...)
			matched++
			result.Total++
			if score >= cfg.FuzzyThreshold {
				result.Confident++
			}
			if score > result.BestScore {
				result.BestScore = score
			}
			continue
		}
		i++
	}
	return groups, singles, matched
}

// matchFuzzySingles pairs remaining single segments under a relaxed length
// guard of [0.6, 1.4]
func matchFuzzySingles(missing, extra []string, cfg fuzzyConfig, result *matchResult) ([]string, []string, int) {
	matched := 0
	i := 0
	for i < len(missing) {
		found := -1
		score := 0.0
		for j, e := range extra {
			if ok, s := similar(missing[i], e, cfg, 0.6, 1.4); ok {
				found = j
				score = s
				break
			}
		}
		if found >= 0 {
			missing = append(missing[:i], missing[i+1:]...)
			extra = append(extra[:found], extra[found+1:]...)
			matched++
			result.Total++
			if score >= cfg.FuzzyThreshold {
				result.Confident++
			}
			if score > result.BestScore {
				result.BestScore = score
			}
			continue
		}
		i++
	}
	return missing, extra, matched
}

// similar reports whether two segments match under the greater of the
// Levenshtein ratio or Jaccard token overlap thresholds, guarded by a
// length ratio window.
func similar(a, b string, cfg fuzzyConfig, minRatio, maxRatio float64) (bool, float64) {
	if len(a) == 0 || len(b) == 0 {
		return false, 0
	}
	lengthRatio := float64(len(a)) / float64(len(b))
	if lengthRatio < minRatio || lengthRatio > maxRatio {
		return false, 0
	}

	lev := levenshteinRatio(a, b)
	if lev >= cfg.LevRatio {
		return true, lev
	}

	jac := jaccardOverlap(a, b)
	if jac >= cfg.TokenOverlap {
		return true, jac
	}
	return false, 0
}

// levenshteinRatio converts edit distance to a similarity in [0,1]
func levenshteinRatio(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(longest)
}

// jaccardOverlap computes token-set intersection over union
func jaccardOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}
