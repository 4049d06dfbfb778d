package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
	"github.com/adityakrsna/finsight-rag/internal/observability/metrics"
)

type Router struct {
	service  string
	queryUC  ports.QueryService
	ingestUC ports.RecordIngestor
	reader   ports.RecordReader
	stats    ports.StatsProvider
	metrics  *metrics.APIMetrics
}

func NewRouter(
	service string,
	queryUC ports.QueryService,
	ingestUC ports.RecordIngestor,
	reader ports.RecordReader,
	stats ports.StatsProvider,
	apiMetrics *metrics.APIMetrics,
) *Router {
	return &Router{
		service:  service,
		queryUC:  queryUC,
		ingestUC: ingestUC,
		reader:   reader,
		stats:    stats,
		metrics:  apiMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/records", rt.uploadRecord)
	mux.HandleFunc("/v1/records/", rt.getRecordByID)
	mux.HandleFunc("/v1/stats", rt.corpusStats)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query           string `json:"query"`
	NResults        int    `json:"n_results"`
	Source          string `json:"source"`
	IncludeMetadata bool   `json:"include_metadata"`
}

type evidenceDTO struct {
	Rank     int               `json:"rank"`
	Score    float64           `json:"score"`
	Source   string            `json:"source"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type queryResponseDTO struct {
	Answer           string        `json:"answer"`
	BackendUsed      string        `json:"backend_used"`
	ConfidenceScore  float64       `json:"confidence_score"`
	QueryType        string        `json:"query_type"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
	RerankDegraded   bool          `json:"rerank_degraded"`
	Evidence         []evidenceDTO `json:"evidence"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	resp, err := rt.queryUC.AnswerQuery(r.Context(), domain.Query{
		Text:            req.Query,
		NResults:        req.NResults,
		Source:          domain.Source(req.Source),
		IncludeMetadata: req.IncludeMetadata,
	})
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if rt.metrics != nil {
			rt.metrics.RecordQuery(rt.service, "error", "", time.Since(start))
		}
		slog.Error("query_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(rt.service, "success", string(resp.Classification.Category), resp.Elapsed)
		rt.metrics.RecordAnswerObservation(rt.service, resp.Backend, len(resp.Evidence), resp.Confidence.Score, resp.RerankDegraded)
	}

	evidence := make([]evidenceDTO, 0, len(resp.Evidence))
	for _, ev := range resp.Evidence {
		evidence = append(evidence, evidenceDTO{
			Rank:     ev.Rank,
			Score:    ev.FinalScore,
			Source:   string(ev.Source),
			Content:  ev.Text,
			Metadata: ev.Metadata,
		})
	}

	writeJSON(w, http.StatusOK, queryResponseDTO{
		Answer:           resp.Answer,
		BackendUsed:      resp.Backend,
		ConfidenceScore:  resp.Confidence.Score,
		QueryType:        string(resp.Classification.Category),
		ProcessingTimeMS: float64(resp.Elapsed.Microseconds()) / 1000.0,
		RerankDegraded:   resp.RerankDegraded,
		Evidence:         evidence,
	})
}

func (rt *Router) uploadRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	record, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		domain.Source(r.FormValue("source")),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, record)
}

func (rt *Router) getRecordByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record id is required"})
		return
	}

	record, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) corpusStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.stats.CorpusStats(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
