package memory

import (
	"fmt"
	"sort"
	"strings"
)

// searchEntries ranks a namespace's (key, item) pairs against query per
// the keyword-search contract in spec §4.5: items containing every
// whitespace-separated, case-folded token of query rank before items
// missing a token; within each group items are scored by term-frequency
// relevance, ties broken by descending importance then descending
// recency. Shared by every KvStore backend so ranking behavior is
// identical regardless of storage medium.
func searchEntries(entries map[string]Item, query string, limit int) []ScoredItem {
	tokens := tokenize(query)

	scored := make([]ScoredItem, 0, len(entries))
	for key, item := range entries {
		haystack := tokenize(fmt.Sprint(item.Value))
		matchesAll, score := scoreTokens(tokens, haystack)
		if len(tokens) > 0 && score == 0 {
			continue
		}
		scored = append(scored, ScoredItem{Key: key, Item: item, Score: boostedScore(score, matchesAll)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ai, bi := importanceOf(a.Item), importanceOf(b.Item)
		if ai != bi {
			return ai > bi
		}
		return a.Item.CreatedAt.After(b.Item.CreatedAt)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	return fields
}

// scoreTokens reports whether haystack contains every token in tokens,
// and a term-frequency score: the count of token occurrences in
// haystack, summed across distinct tokens.
func scoreTokens(tokens, haystack []string) (matchesAll bool, score float64) {
	if len(tokens) == 0 {
		return true, 0
	}
	counts := make(map[string]int, len(haystack))
	for _, w := range haystack {
		counts[w]++
	}

	matchesAll = true
	for _, t := range tokens {
		c := counts[t]
		if c == 0 {
			matchesAll = false
		}
		score += float64(c)
	}
	return matchesAll, score
}

// boostedScore pushes full-match items ahead of partial matches while
// keeping term-frequency as the tiebreaker within each group.
func boostedScore(score float64, matchesAll bool) float64 {
	if matchesAll {
		return score + 1000
	}
	return score
}

func importanceOf(item Item) float64 {
	if item.Importance == nil {
		return 0
	}
	return *item.Importance
}
