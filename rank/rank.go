// Package rank computes frequency rankings over a field of a collection.
//
// Rankings are deterministic: entries are ordered by count descending and
// keys with equal counts keep the order in which they first appeared in the
// input. Map iteration order never leaks into the result.
package rank

import (
	"cmp"
	"iter"
	"math"
	"slices"
)

// Unbounded asks Rank for every distinct key.
const Unbounded = math.MaxInt

// Entry is one ranked key. Count is always >= 1.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Share returns the entry's percentage of total, or 0 when total is not positive.
func (e Entry) Share(total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(e.Count) / float64(total) * 100
}

// Rank returns at most topN entries for the keys produced by keyOf. A nil or
// empty collection and a non-positive topN both yield an empty result. The
// empty string is a key like any other. records is not modified.
func Rank[T any](records []T, keyOf func(T) string, topN int) []Entry {
	return RankSeq(slices.Values(records), keyOf, topN)
}

// RankSeq is Rank over a sequence, so rows can be ranked while they are read.
func RankSeq[T any](records iter.Seq[T], keyOf func(T) string, topN int) []Entry {
	if topN <= 0 || records == nil {
		return []Entry{}
	}

	// Entries are appended on first sight, so their slice order is the
	// first-appearance order used for tie-breaking.
	index := make(map[string]int)
	entries := []Entry{}
	for r := range records {
		key := keyOf(r)
		if i, ok := index[key]; ok {
			entries[i].Count++
			continue
		}
		index[key] = len(entries)
		entries = append(entries, Entry{Key: key, Count: 1})
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return entries[:min(topN, len(entries))]
}

// Distinct counts the distinct keys in records.
func Distinct[T any](records []T, keyOf func(T) string) int {
	return len(Rank(records, keyOf, Unbounded))
}
