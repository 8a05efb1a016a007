package narrative

import (
	"sort"
	"unicode/utf8"

	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/textutil"
)

// extractThemes ranks content tokens across all items by frequency. Ties keep
// the order in which tokens first appeared.
func extractThemes(items []models.Item, topK, minLen int) []string {
	counts := make(map[string]int)
	var order []string

	for _, item := range items {
		for _, tok := range textutil.ContentTokens(item.EffectiveText()) {
			if utf8.RuneCountInString(tok) < minLen {
				continue
			}
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > topK {
		order = order[:topK]
	}
	return order
}
