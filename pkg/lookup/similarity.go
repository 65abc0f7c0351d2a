package lookup

import "strings"

// Similarity scores a and b between 0 and 1, ignoring case. It is one minus
// the Damerau-Levenshtein distance divided by the longer rune length.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToUpper(a))
	rb := []rune(strings.ToUpper(b))
	if string(ra) == string(rb) {
		return 1
	}
	longest := max(len(ra), len(rb))
	return 1 - float64(damerauDistance(ra, rb))/float64(longest)
}

// damerauDistance counts insertions, deletions, substitutions and
// transpositions of adjacent runes. Unlike optimal string alignment, a
// transposed pair may be edited again, so "CA" to "ABC" costs 2.
func damerauDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// d is (len(a)+2) x (len(b)+2); row and column 0 hold the sentinel
	w := len(b) + 2
	d := make([]int, (len(a)+2)*w)
	sentinel := len(a) + len(b)
	d[0] = sentinel
	for i := 0; i <= len(a); i++ {
		d[(i+1)*w] = sentinel
		d[(i+1)*w+1] = i
	}
	for j := 0; j <= len(b); j++ {
		d[j+1] = sentinel
		d[w+j+1] = j
	}

	// last row of a in which each rune was seen
	lastRow := make(map[rune]int)
	for i := 1; i <= len(a); i++ {
		lastCol := 0
		for j := 1; j <= len(b); j++ {
			k, l := lastRow[b[j-1]], lastCol
			cost := 1
			if a[i-1] == b[j-1] {
				cost, lastCol = 0, j
			}
			d[(i+1)*w+j+1] = min(
				d[i*w+j]+cost,
				d[(i+1)*w+j]+1,
				d[i*w+j+1]+1,
				d[k*w+l]+(i-k-1)+1+(j-l-1),
			)
		}
		lastRow[a[i-1]] = i
	}
	return d[(len(a)+1)*w+len(b)+1]
}
