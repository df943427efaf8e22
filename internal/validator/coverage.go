package validator

// lcsLength computes the longest common subsequence length of two segment
// sequences.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Coverage is LCS(source, notion) / max(|source|, |notion|)
func Coverage(source, notion []string) float64 {
	denom := len(source)
	if len(notion) > denom {
		denom = len(notion)
	}
	if denom == 0 {
		return 1.0
	}
	return float64(lcsLength(source, notion)) / float64(denom)
}

// countInversions counts common segments appearing in differing relative
// order between the two sequences. Each source segment is matched to the
// first unconsumed occurrence in notion; descents in the resulting index
// sequence are inversions.
func countInversions(source, notion []string) int {
	used := make([]bool, len(notion))
	var positions []int
	for _, s := range source {
		for j, n := range notion {
			if !used[j] && s == n {
				used[j] = true
				positions = append(positions, j)
				break
			}
		}
	}

	inversions := 0
	for i := 1; i < len(positions); i++ {
		if positions[i] < positions[i-1] {
			inversions++
		}
	}
	return inversions
}

// setDifference returns elements of a not present in b, counting
// multiplicity
func setDifference(a, b []string) []string {
	counts := make(map[string]int, len(b))
	for _, s := range b {
		counts[s]++
	}
	var out []string
	for _, s := range a {
		if counts[s] > 0 {
			counts[s]--
			continue
		}
		out = append(out, s)
	}
	return out
}
