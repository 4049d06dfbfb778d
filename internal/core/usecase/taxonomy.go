package usecase

import (
	"strings"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// categoryRule binds one taxonomy category to the keyword terms that select
// it. Table order is the tie-break priority: the first rule with any
// matching term wins.
type categoryRule struct {
	category domain.QueryCategory
	terms    []string
}

func defaultCategoryRules() []categoryRule {
	return []categoryRule{
		{
			category: domain.CategoryInsiderTrading,
			terms: []string{
				"insider", "tipping", "unpublished price sensitive",
				"upsi", "material non-public", "trading window",
			},
		},
		{
			category: domain.CategoryMarketManipulation,
			terms: []string{
				"manipulation", "rigging", "wash trade", "wash trading",
				"pump and dump", "circular trading", "spoofing",
				"synchronized trades",
			},
		},
		{
			category: domain.CategoryDisclosureViolation,
			terms: []string{
				"disclosure", "listing obligation", "shareholding pattern",
				"misstatement", "non-disclosure",
			},
		},
		{
			category: domain.CategoryAccountingFraud,
			terms: []string{
				"accounting", "books of account", "financial statement",
				"siphoning", "round tripping", "window dressing",
			},
		},
		{
			category: domain.CategoryMoneyLaundering,
			terms: []string{
				"laundering", "layering", "placement", "shell company",
				"hawala", "benami",
			},
		},
		{
			category: domain.CategoryGovernance,
			terms: []string{
				"governance", "board of directors", "independent director",
				"related party", "audit committee",
			},
		},
	}
}

// matchRule reports the terms of rule that occur in the lowercased text.
func matchRule(lowered string, rule categoryRule) []string {
	var matched []string
	for _, term := range rule.terms {
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// tagViolations returns every category whose terms appear in the text, in
// table order. Used by the indexing pipeline to annotate corpus chunks.
func tagViolations(text string, rules []categoryRule) []string {
	lowered := strings.ToLower(text)
	var tags []string
	for _, rule := range rules {
		if len(matchRule(lowered, rule)) > 0 {
			tags = append(tags, string(rule.category))
		}
	}
	return tags
}
