package core

import (
	"sort"
	"strconv"
	"strings"
)

// FormatLaneRange renders lane numbers as a compact human-readable range
// expression: consecutive runs collapse to "lo-hi", the rest join with
// commas. Input order and duplicates do not matter; [4 2 3 2 7] -> "2-4,7".
func FormatLaneRange(lanes []int) string {
	if len(lanes) == 0 {
		return ""
	}
	sorted := append([]int(nil), lanes...)
	sort.Ints(sorted)
	unique := sorted[:1]
	for _, lane := range sorted[1:] {
		if lane != unique[len(unique)-1] {
			unique = append(unique, lane)
		}
	}

	var b strings.Builder
	for i := 0; i < len(unique); {
		j := i
		for j+1 < len(unique) && unique[j+1] == unique[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(unique[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(unique[j]))
		}
		i = j + 1
	}
	return b.String()
}

// lanePlural returns "lane" or "lanes" for the distinct lanes in the list.
func lanePlural(lanes []int) string {
	seen := map[int]struct{}{}
	for _, lane := range lanes {
		seen[lane] = struct{}{}
	}
	if len(seen) > 1 {
		return "lanes"
	}
	return "lane"
}
