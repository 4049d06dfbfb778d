package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0.5}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeSearcher struct {
	mu         sync.Mutex
	calls      int
	bySource   map[domain.Source][]domain.EvidenceCandidate
	failSource map[domain.Source]error
}

func (f *fakeSearcher) Search(_ context.Context, source domain.Source, _ []float32, limit int) ([]domain.EvidenceCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err, ok := f.failSource[source]; ok {
		return nil, err
	}

	candidates := f.bySource[source]
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	// Fresh copies: the pipeline annotates results per call.
	out := make([]domain.EvidenceCandidate, len(candidates))
	copy(out, candidates)
	return out, nil
}

type fakeReranker struct {
	mu     sync.Mutex
	calls  int
	scores func(passages []string) []float64
	err    error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, passages []string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores(passages), nil
	}
	out := make([]float64, len(passages))
	for i := range passages {
		out[i] = 0.5
	}
	return out, nil
}

type fakeBackend struct {
	name     string
	response string
	err      error
	calls    int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Generate(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func docChunk(id string, text string, similarity float64) domain.EvidenceCandidate {
	return domain.EvidenceCandidate{
		ChunkID:    id,
		Text:       text,
		Similarity: similarity,
		Metadata:   map[string]string{"record_id": "rec-" + id},
	}
}

func insiderTradingFixture() *fakeSearcher {
	return &fakeSearcher{
		bySource: map[domain.Source][]domain.EvidenceCandidate{
			domain.SourceDocuments: {
				docChunk("c1", "Order imposing penalty for insider trading during the trading window closure.", 0.91),
				docChunk("c2", "The insider communicated unpublished price sensitive information to a relative.", 0.84),
				docChunk("c3", "Disgorgement of unlawful gains along with a monetary penalty was directed.", 0.77),
				docChunk("c4", "Trading by designated persons requires pre-clearance above threshold limits.", 0.69),
				docChunk("c5", "The tribunal upheld the penalty observing a pattern of trades ahead of announcements.", 0.61),
			},
			domain.SourceTransactions: {},
		},
	}
}

func newTestPipeline(searcher *fakeSearcher, reranker *fakeReranker, backends ...*fakeBackend) (*AnswerQueryUseCase, *fakeEmbedder) {
	embedder := &fakeEmbedder{}
	var rr ports.Reranker
	if reranker != nil {
		rr = reranker
	}
	chain := make([]ports.GenerationBackend, 0, len(backends))
	for _, backend := range backends {
		chain = append(chain, backend)
	}
	uc := NewAnswerQueryUseCase(embedder, searcher, rr, chain, PipelineConfig{})
	return uc, embedder
}

func TestAnswerQueryEmptyTextRejectedBeforeRetrieval(t *testing.T) {
	searcher := insiderTradingFixture()
	uc, embedder := newTestPipeline(searcher, nil, &fakeBackend{name: "ollama", response: "x"})

	_, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "   "})
	if !domain.IsKind(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("expected no embedding calls, got %d", embedder.calls)
	}
	if searcher.calls != 0 {
		t.Fatalf("expected no search calls, got %d", searcher.calls)
	}
}

func TestAnswerQueryValidationBounds(t *testing.T) {
	uc, _ := newTestPipeline(insiderTradingFixture(), nil, &fakeBackend{name: "ollama", response: "x"})

	cases := []struct {
		name    string
		query   domain.Query
		wantErr bool
	}{
		{"negative n", domain.Query{Text: "insider trading", NResults: -1}, true},
		{"over max n", domain.Query{Text: "insider trading", NResults: 51}, true},
		{"unknown source", domain.Query{Text: "insider trading", Source: "emails"}, true},
		{"zero n defaults", domain.Query{Text: "insider trading"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.AnswerQuery(context.Background(), tc.query)
			if tc.wantErr {
				if !domain.IsKind(err, domain.ErrInvalidQuery) {
					t.Fatalf("expected ErrInvalidQuery, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAnswerQueryInsiderTradingPipeline(t *testing.T) {
	backend := &fakeBackend{name: "ollama", response: "Penalties for insider trading include monetary fines and disgorgement [1][3]."}
	uc, _ := newTestPipeline(insiderTradingFixture(), &fakeReranker{}, backend)

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Classification.Category != domain.CategoryInsiderTrading {
		t.Fatalf("expected insider_trading classification, got %s", resp.Classification.Category)
	}
	if resp.Backend != "ollama" {
		t.Fatalf("expected ollama backend, got %s", resp.Backend)
	}
	if resp.Answer != backend.response {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Evidence) == 0 || len(resp.Evidence) > 5 {
		t.Fatalf("expected 1..5 evidence items, got %d", len(resp.Evidence))
	}
	if resp.Confidence.Score <= 0 {
		t.Fatalf("expected positive confidence, got %f", resp.Confidence.Score)
	}
	for _, ev := range resp.Evidence {
		if ev.Source != domain.SourceDocuments {
			t.Fatalf("expected all evidence from documents, got %s", ev.Source)
		}
	}
	for i, ev := range resp.Evidence {
		if ev.Rank != i+1 {
			t.Fatalf("expected rank %d at position %d, got %d", i+1, i, ev.Rank)
		}
	}
}

func TestAnswerQueryZeroMatches(t *testing.T) {
	searcher := &fakeSearcher{
		bySource: map[domain.Source][]domain.EvidenceCandidate{
			domain.SourceDocuments:    {},
			domain.SourceTransactions: {},
		},
	}
	backend := &fakeBackend{name: "ollama", response: "should not be used"}
	uc, _ := newTestPipeline(searcher, nil, backend)

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "completely unrelated topic"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Evidence) != 0 {
		t.Fatalf("expected no evidence, got %d", len(resp.Evidence))
	}
	if resp.Confidence.Score != 0 {
		t.Fatalf("expected zero confidence, got %f", resp.Confidence.Score)
	}
	if resp.Backend != domain.FallbackBackend {
		t.Fatalf("expected fallback backend, got %s", resp.Backend)
	}
	if resp.Answer != noEvidenceAnswer {
		t.Fatalf("unexpected no-evidence answer: %q", resp.Answer)
	}
	if backend.calls != 0 {
		t.Fatalf("generation should be skipped without evidence, got %d calls", backend.calls)
	}
}

func TestAnswerQueryAllSourcesFailed(t *testing.T) {
	searcher := &fakeSearcher{
		failSource: map[domain.Source]error{
			domain.SourceDocuments:    errors.New("qdrant down"),
			domain.SourceTransactions: errors.New("qdrant down"),
		},
	}
	uc, _ := newTestPipeline(searcher, nil, &fakeBackend{name: "ollama", response: "x"})

	_, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties"})
	if !domain.IsKind(err, domain.ErrRetrievalFailed) {
		t.Fatalf("expected ErrRetrievalFailed, got %v", err)
	}
}

func TestAnswerQueryPartialSourceFailureIsTolerated(t *testing.T) {
	searcher := insiderTradingFixture()
	searcher.failSource = map[domain.Source]error{
		domain.SourceTransactions: errors.New("collection unavailable"),
	}
	uc, _ := newTestPipeline(searcher, nil, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Evidence) == 0 {
		t.Fatalf("expected evidence from the healthy source")
	}
}

func TestAnswerQueryGenerationChainFallsBack(t *testing.T) {
	primary := &fakeBackend{name: "ollama", err: errors.New("connection refused")}
	secondary := &fakeBackend{name: "openai", err: errors.New("rate limited")}
	uc, _ := newTestPipeline(insiderTradingFixture(), nil, primary, secondary)

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected both backends tried once, got %d/%d", primary.calls, secondary.calls)
	}
	if resp.Backend != domain.FallbackBackend {
		t.Fatalf("expected fallback backend, got %s", resp.Backend)
	}
	if strings.TrimSpace(resp.Answer) == "" {
		t.Fatalf("fallback answer must not be empty")
	}
	if !strings.Contains(resp.Answer, "source=documents") {
		t.Fatalf("fallback answer should cite evidence, got %q", resp.Answer)
	}
}

func TestAnswerQuerySecondaryBackendServes(t *testing.T) {
	primary := &fakeBackend{name: "ollama", err: errors.New("connection refused")}
	secondary := &fakeBackend{name: "openai", response: "the secondary answer"}
	uc, _ := newTestPipeline(insiderTradingFixture(), nil, primary, secondary)

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Backend != "openai" {
		t.Fatalf("expected openai backend, got %s", resp.Backend)
	}
	if resp.Answer != "the secondary answer" {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
}

func TestAnswerQueryRerankerFailureDegradesGracefully(t *testing.T) {
	reranker := &fakeReranker{err: errors.New("reranker unreachable")}
	uc, _ := newTestPipeline(insiderTradingFixture(), reranker, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.RerankDegraded {
		t.Fatalf("expected RerankDegraded=true")
	}
	for i := 1; i < len(resp.Evidence); i++ {
		if resp.Evidence[i-1].FinalScore < resp.Evidence[i].FinalScore {
			t.Fatalf("similarity ordering violated at %d: %f < %f", i, resp.Evidence[i-1].FinalScore, resp.Evidence[i].FinalScore)
		}
	}
}

func TestAnswerQueryRerankerReordersEvidence(t *testing.T) {
	// Cross-encoder inverts the retrieval ordering: the weakest retrieval hit
	// gets the strongest relevance score.
	reranker := &fakeReranker{
		scores: func(passages []string) []float64 {
			out := make([]float64, len(passages))
			for i := range passages {
				if strings.Contains(passages[i], "tribunal") {
					out[i] = 0.99
					continue
				}
				out[i] = 0.1
			}
			return out
		},
	}
	uc, _ := newTestPipeline(insiderTradingFixture(), reranker, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RerankDegraded {
		t.Fatalf("rerank should not be degraded")
	}
	if !strings.Contains(resp.Evidence[0].Text, "tribunal") {
		t.Fatalf("expected cross-encoder winner first, got %q", resp.Evidence[0].Text)
	}
}

func TestAnswerQueryDeterministicAcrossRuns(t *testing.T) {
	run := func() *domain.QueryResponse {
		uc, _ := newTestPipeline(insiderTradingFixture(), &fakeReranker{
			scores: func(passages []string) []float64 {
				out := make([]float64, len(passages))
				for i := range passages {
					out[i] = float64(len(passages[i])%10) / 10.0
				}
				return out
			},
		}, &fakeBackend{name: "ollama", response: "answer"})

		resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return resp
	}

	first := run()
	second := run()

	if len(first.Evidence) != len(second.Evidence) {
		t.Fatalf("evidence count differs: %d vs %d", len(first.Evidence), len(second.Evidence))
	}
	for i := range first.Evidence {
		if first.Evidence[i].ChunkID != second.Evidence[i].ChunkID {
			t.Fatalf("ordering differs at %d: %s vs %s", i, first.Evidence[i].ChunkID, second.Evidence[i].ChunkID)
		}
		if first.Evidence[i].FinalScore != second.Evidence[i].FinalScore {
			t.Fatalf("score differs at %d", i)
		}
	}
	if first.Confidence.Score != second.Confidence.Score {
		t.Fatalf("confidence differs: %f vs %f", first.Confidence.Score, second.Confidence.Score)
	}
}

func TestAnswerQueryEvidenceIsDeduplicated(t *testing.T) {
	uc, _ := newTestPipeline(insiderTradingFixture(), nil, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The same five chunks come back for every query variant; after
	// deduplication each chunk id appears exactly once.
	seen := make(map[string]bool)
	for _, ev := range resp.Evidence {
		if seen[ev.ChunkID] {
			t.Fatalf("duplicate chunk id in evidence: %s", ev.ChunkID)
		}
		seen[ev.ChunkID] = true
	}
	if len(resp.Evidence) != 5 {
		t.Fatalf("expected 5 unique chunks, got %d", len(resp.Evidence))
	}
}

func TestAnswerQueryMetadataStrippedByDefault(t *testing.T) {
	uc, _ := newTestPipeline(insiderTradingFixture(), nil, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ev := range resp.Evidence {
		if ev.Metadata != nil {
			t.Fatalf("expected metadata stripped, got %v", ev.Metadata)
		}
	}

	withMeta, err := uc.AnswerQuery(context.Background(), domain.Query{
		Text:            "insider trading penalties",
		NResults:        3,
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(withMeta.Evidence) == 0 || withMeta.Evidence[0].Metadata == nil {
		t.Fatalf("expected metadata preserved when requested")
	}
}

func TestAnswerQuerySourceFilterRestrictsRetrieval(t *testing.T) {
	searcher := insiderTradingFixture()
	searcher.bySource[domain.SourceTransactions] = []domain.EvidenceCandidate{
		docChunk("t1", "2024-03-01 | ACME | BUY | 120000 shares ahead of the merger announcement", 0.88),
	}
	uc, _ := newTestPipeline(searcher, nil, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{
		Text:     "suspicious trades before announcement with insider knowledge",
		NResults: 5,
		Source:   domain.SourceTransactions,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ev := range resp.Evidence {
		if ev.Source != domain.SourceTransactions {
			t.Fatalf("expected only transaction evidence, got %s", ev.Source)
		}
	}
}

func TestAnswerQueryTieBreakPrefersDocuments(t *testing.T) {
	searcher := &fakeSearcher{
		bySource: map[domain.Source][]domain.EvidenceCandidate{
			domain.SourceDocuments: {
				docChunk("d1", "Document chunk about insider trading enforcement orders.", 0.8),
			},
			domain.SourceTransactions: {
				docChunk("t1", "Transaction row flagged for trading ahead of the announcement.", 0.8),
			},
		},
	}
	uc, _ := newTestPipeline(searcher, nil, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Evidence) != 2 {
		t.Fatalf("expected 2 evidence items, got %d", len(resp.Evidence))
	}
	if resp.Evidence[0].Source != domain.SourceDocuments {
		t.Fatalf("expected documents to win the tie, got %s first", resp.Evidence[0].Source)
	}
}

func TestAnswerQueryOverfetchLimit(t *testing.T) {
	many := make([]domain.EvidenceCandidate, 0, 30)
	for i := 0; i < 30; i++ {
		many = append(many, docChunk(
			fmt.Sprintf("c%02d", i),
			fmt.Sprintf("Distinct enforcement order number %02d about insider trading.", i),
			0.9-float64(i)*0.01,
		))
	}
	searcher := &fakeSearcher{
		bySource: map[domain.Source][]domain.EvidenceCandidate{
			domain.SourceDocuments:    many,
			domain.SourceTransactions: {},
		},
	}
	uc, _ := newTestPipeline(searcher, nil, &fakeBackend{name: "ollama", response: "answer"})

	resp, err := uc.AnswerQuery(context.Background(), domain.Query{Text: "insider trading penalties", NResults: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Evidence) != 4 {
		t.Fatalf("expected exactly n=4 evidence items after truncation, got %d", len(resp.Evidence))
	}
}
