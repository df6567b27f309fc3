// Package levenshtein computes edit distance for domain typo detection.
package levenshtein

// Distance computes the Levenshtein edit distance between two strings,
// operating on runes. A single row plus the previous diagonal is kept,
// so memory is O(len(t)).
func Distance(s, t string) int {
	sr := []rune(s)
	tr := []rune(t)

	if len(sr) == 0 {
		return len(tr)
	}
	if len(tr) == 0 {
		return len(sr)
	}

	row := make([]int, len(tr)+1)
	for j := range row {
		row[j] = j
	}

	for i, sc := range sr {
		diag := row[0] // cost of (i-1, j-1)
		row[0] = i + 1
		for j, tc := range tr {
			sub := diag
			if sc != tc {
				sub++
			}
			diag = row[j+1]
			row[j+1] = minInt(row[j]+1, minInt(row[j+1]+1, sub))
		}
	}

	return row[len(tr)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
