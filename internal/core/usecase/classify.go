package usecase

import (
	"strings"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// classifyQuery assigns the query to the first taxonomy category with a
// matching keyword. No match yields the unclassified category. The result
// steers prompt framing and is returned to the caller for analytics.
func classifyQuery(text string, rules []categoryRule) domain.Classification {
	lowered := strings.ToLower(text)
	for _, rule := range rules {
		if matched := matchRule(lowered, rule); len(matched) > 0 {
			return domain.Classification{
				Category:     rule.category,
				MatchedTerms: matched,
			}
		}
	}
	return domain.Classification{Category: domain.CategoryUnclassified}
}
