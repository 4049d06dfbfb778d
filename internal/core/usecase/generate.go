package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

const noEvidenceAnswer = "No sufficient evidence was found in the indexed corpus to answer this question. " +
	"Try rephrasing the query, or narrow it to a specific violation type, entity, or time period."

// generate produces the answer through the backend chain: each configured
// generation backend is tried in order under the generation timeout; when
// all are unreachable, or when there is no evidence at all, the
// deterministic fallback serves the request. Some answer is always
// returned, with the backend that produced it recorded.
func (uc *AnswerQueryUseCase) generate(
	ctx context.Context,
	query domain.Query,
	cls domain.Classification,
	evidence []domain.RankedEvidence,
) domain.Answer {
	if len(evidence) == 0 {
		return domain.Answer{
			Text:    noEvidenceAnswer,
			Backend: domain.FallbackBackend,
		}
	}

	prompt := buildAnswerPrompt(query.Text, cls, evidence)

	for _, backend := range uc.backends {
		genCtx, cancel := context.WithTimeout(ctx, uc.cfg.GenerationTimeout)
		text, err := backend.Generate(genCtx, prompt)
		cancel()

		if err == nil && strings.TrimSpace(text) != "" {
			return domain.Answer{
				Text:     strings.TrimSpace(text),
				Backend:  backend.Name(),
				Evidence: evidence,
			}
		}
		slog.Warn("generation_backend_failed", "backend", backend.Name(), "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return domain.Answer{
		Text:     fallbackAnswer(evidence),
		Backend:  domain.FallbackBackend,
		Evidence: evidence,
	}
}

// buildAnswerPrompt assembles the grounded prompt: classification-specific
// framing, the evidence blocks with citation markers, and the question.
func buildAnswerPrompt(question string, cls domain.Classification, evidence []domain.RankedEvidence) string {
	var b strings.Builder
	b.WriteString("You are a financial fraud analyst working with regulatory enforcement documents and transaction records.\n")
	b.WriteString(categoryFraming(cls.Category))
	b.WriteString("\n\nAnswer the question using only the evidence below. ")
	b.WriteString("Cite evidence as [1], [2], and so on. If the evidence is insufficient, say so directly.\n\nEvidence:\n")

	for i, ev := range evidence {
		fmt.Fprintf(&b, "[%d] source=%s score=%.3f\n%s\n\n", i+1, ev.Source, ev.FinalScore, ev.Text)
	}

	fmt.Fprintf(&b, "Question:\n%s\n", question)
	return b.String()
}

func categoryFraming(category domain.QueryCategory) string {
	switch category {
	case domain.CategoryInsiderTrading:
		return "The question concerns insider trading: trading on unpublished price sensitive information, tipping, and trading window violations."
	case domain.CategoryMarketManipulation:
		return "The question concerns market manipulation: price rigging, wash trades, circular trading, and artificial volume."
	case domain.CategoryDisclosureViolation:
		return "The question concerns disclosure violations: listing obligations, shareholding disclosures, and misstatements."
	case domain.CategoryAccountingFraud:
		return "The question concerns accounting fraud: misstated financials, siphoning, and diversion of funds."
	case domain.CategoryMoneyLaundering:
		return "The question concerns money laundering: placement, layering, and integration of proceeds."
	case domain.CategoryGovernance:
		return "The question concerns corporate governance: board oversight, related party transactions, and audit committees."
	default:
		return "The question concerns financial fraud, regulatory violations, or enforcement actions."
	}
}

// fallbackAnswer is the deterministic non-generative answer: it enumerates
// the top evidence with scores and source identifiers.
func fallbackAnswer(evidence []domain.RankedEvidence) string {
	var b strings.Builder
	b.WriteString("Answer generation is unavailable; this is a non-generative summary of the top-ranked evidence.\n\n")
	for _, ev := range evidence {
		fmt.Fprintf(&b, "[%d] source=%s score=%.3f id=%s\n%s\n\n", ev.Rank, ev.Source, ev.FinalScore, ev.ChunkID, snippet(ev.Text, 300))
	}
	return strings.TrimSpace(b.String())
}

func snippet(text string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes]) + "..."
}
