package usecase

import (
	"hash/fnv"
	"strings"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// dedupeCandidates collapses duplicates across variants and sources. Two
// candidates are duplicates when they carry the same chunk identifier, or
// when their content fingerprints collide (near-duplicate rule: FNV-1a over
// the lowercased, whitespace-collapsed first fingerprintRunes runes). The
// survivor keeps the highest raw similarity and the union of contributing
// variants. First-seen order is preserved; final ordering belongs to the
// reranker.
func dedupeCandidates(candidates []domain.EvidenceCandidate, fingerprintRunes int) []domain.EvidenceCandidate {
	out := make([]domain.EvidenceCandidate, 0, len(candidates))
	byID := make(map[string]int, len(candidates))
	byFingerprint := make(map[uint64]int, len(candidates))

	for _, candidate := range candidates {
		fp := contentFingerprint(candidate.Text, fingerprintRunes)

		pos := -1
		if candidate.ChunkID != "" {
			if p, ok := byID[candidate.ChunkID]; ok {
				pos = p
			}
		}
		if pos < 0 {
			if p, ok := byFingerprint[fp]; ok {
				pos = p
			}
		}

		if pos < 0 {
			out = append(out, candidate)
			pos = len(out) - 1
		} else {
			out[pos] = mergeDuplicate(out[pos], candidate)
		}

		if candidate.ChunkID != "" {
			byID[candidate.ChunkID] = pos
		}
		byFingerprint[fp] = pos
	}

	return out
}

func mergeDuplicate(kept, dup domain.EvidenceCandidate) domain.EvidenceCandidate {
	if dup.Similarity > kept.Similarity {
		kept.Similarity = dup.Similarity
	}
	if kept.ChunkID == "" {
		kept.ChunkID = dup.ChunkID
	}
	kept.Variants = unionVariants(kept.Variants, dup.Variants)
	return kept
}

func unionVariants(a, b []domain.VariantKind) []domain.VariantKind {
	seen := make(map[domain.VariantKind]struct{}, len(a)+len(b))
	out := make([]domain.VariantKind, 0, len(a)+len(b))
	for _, kind := range a {
		if _, ok := seen[kind]; !ok {
			seen[kind] = struct{}{}
			out = append(out, kind)
		}
	}
	for _, kind := range b {
		if _, ok := seen[kind]; !ok {
			seen[kind] = struct{}{}
			out = append(out, kind)
		}
	}
	return out
}

func contentFingerprint(text string, maxRunes int) uint64 {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	runes := []rune(normalized)
	if maxRunes > 0 && len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(runes)))
	return h.Sum64()
}
