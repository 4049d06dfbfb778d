package usecase

import (
	"strings"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// synonymExpansions appends domain synonyms when the trigger stem occurs in
// the query, widening lexical recall. Triggers are stems matched as
// substrings so inflected forms ("penalties", "defrauded") fire too.
var synonymExpansions = []struct {
	stem     string
	synonyms []string
}{
	{"fraud", []string{"scam", "deception", "manipulation", "misrepresentation"}},
	{"insider", []string{"insider trading", "unpublished price sensitive information", "tipping"}},
	{"market", []string{"market manipulation", "price rigging", "wash trading"}},
	{"money", []string{"money laundering", "layering", "integration", "placement"}},
	{"penalt", []string{"fine", "sanction", "disgorgement"}},
}

// technicalRewrites substitute colloquial terms with regulatory phrasing.
// Multi-word entries come first so they win over their substrings.
var technicalRewrites = []struct {
	from, to string
}{
	{"insider trading", "violation of prohibition of insider trading regulations"},
	{"market manipulation", "fraudulent and unfair trade practices"},
	{"penalties", "monetary penalties disgorgement prohibition"},
	{"penalty", "monetary penalty disgorgement prohibition"},
	{"fraud", "securities fraud violation"},
}

// categoryTerminology injects taxonomy-specific vocabulary into the
// technical variant.
var categoryTerminology = map[domain.QueryCategory]string{
	domain.CategoryInsiderTrading:      "unpublished price sensitive information trading window norms",
	domain.CategoryMarketManipulation:  "artificial volume synchronized trades price discovery",
	domain.CategoryDisclosureViolation: "listing obligations and disclosure requirements",
	domain.CategoryAccountingFraud:     "misstatement of financials diversion of funds",
	domain.CategoryMoneyLaundering:     "layering placement integration of proceeds",
	domain.CategoryGovernance:          "board oversight related party transactions",
}

const contextualSuffix = "securities regulator enforcement action regulatory penalty"

// optimizeQuery expands one query into semantically distinct variants:
// the original verbatim, a synonym-expanded form, a regulatory-technical
// form steered by the classification, and a contextual form for short
// queries. It never fails; at minimum the original survives.
func optimizeQuery(text string, cls domain.Classification, shortQueryTokens int) []domain.QueryVariant {
	variants := []domain.QueryVariant{{Text: text, Kind: domain.VariantOriginal}}
	seen := map[string]struct{}{normalizeVariant(text): {}}

	add := func(candidate string, kind domain.VariantKind) {
		candidate = strings.TrimSpace(candidate)
		key := normalizeVariant(candidate)
		if candidate == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, domain.QueryVariant{Text: candidate, Kind: kind})
	}

	lowered := strings.ToLower(text)

	expanded := lowered
	for _, exp := range synonymExpansions {
		if strings.Contains(lowered, exp.stem) {
			expanded += " " + strings.Join(exp.synonyms, " ")
		}
	}
	add(expanded, domain.VariantExpanded)

	technical := lowered
	for _, rw := range technicalRewrites {
		technical = strings.ReplaceAll(technical, rw.from, rw.to)
	}
	if phrase, ok := categoryTerminology[cls.Category]; ok {
		technical += " " + phrase
	}
	add(technical, domain.VariantTechnical)

	if len(strings.Fields(text)) < shortQueryTokens {
		add(lowered+" "+contextualSuffix, domain.VariantContextual)
	}

	return variants
}

func normalizeVariant(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
