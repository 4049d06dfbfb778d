package domain

// QueryCategory is one entry of the fixed fraud-category taxonomy.
type QueryCategory string

const (
	CategoryInsiderTrading      QueryCategory = "insider_trading"
	CategoryMarketManipulation  QueryCategory = "market_manipulation"
	CategoryDisclosureViolation QueryCategory = "disclosure_violation"
	CategoryAccountingFraud     QueryCategory = "accounting_fraud"
	CategoryMoneyLaundering     QueryCategory = "money_laundering"
	CategoryGovernance          QueryCategory = "governance"
	CategoryUnclassified        QueryCategory = "unclassified"
)

// Classification is the rule-based category assignment for a query, with the
// keyword evidence that triggered it.
type Classification struct {
	Category     QueryCategory `json:"category"`
	MatchedTerms []string      `json:"matched_terms,omitempty"`
}
