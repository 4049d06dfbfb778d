package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// Client speaks the Qdrant HTTP API. Each corpus source maps to its own
// collection so retrieval can fan out per source independently.
type Client struct {
	baseURL     string
	collections map[domain.Source]string
	httpClient  *http.Client

	ensureMu sync.Mutex
	ensured  map[string]int
}

func New(baseURL string, collections map[domain.Source]string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		collections: collections,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		ensured:     make(map[string]int),
	}
}

func (c *Client) collectionFor(source domain.Source) (string, error) {
	name, ok := c.collections[source]
	if !ok || name == "" {
		return "", fmt.Errorf("no collection configured for source %q", source)
	}
	return name, nil
}

func (c *Client) IndexChunks(ctx context.Context, record *domain.CorpusRecord, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	collection, err := c.collectionFor(record.Source)
	if err != nil {
		return err
	}
	if err := c.ensureCollection(ctx, collection, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i := range chunks {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"record_id":      record.ID,
				"filename":       record.Filename,
				"chunk_index":    i,
				"violation_tags": record.ViolationTags,
				"text":           chunks[i],
			},
		})
	}

	reqBody := map[string]any{"points": points}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) Search(
	ctx context.Context,
	source domain.Source,
	vector []float32,
	limit int,
) ([]domain.EvidenceCandidate, error) {
	collection, err := c.collectionFor(source)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.EvidenceCandidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		recordID := getStringPayload(r.Payload, "record_id")
		chunkIndex := getIntPayload(r.Payload, "chunk_index")
		metadata := map[string]string{
			"record_id":   recordID,
			"filename":    getStringPayload(r.Payload, "filename"),
			"chunk_index": strconv.Itoa(chunkIndex),
		}
		if tags := getStringSlicePayload(r.Payload, "violation_tags"); len(tags) > 0 {
			metadata["violation_tags"] = strings.Join(tags, ",")
		}
		out = append(out, domain.EvidenceCandidate{
			Source:     source,
			ChunkID:    fmt.Sprintf("%s:%d", recordID, chunkIndex),
			Text:       getStringPayload(r.Payload, "text"),
			Similarity: r.Score,
			Metadata:   metadata,
		})
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context, source domain.Source) (int, error) {
	collection, err := c.collectionFor(source)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create count request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant collection info request: %w", err)
	}
	defer resp.Body.Close()

	// Missing collection means nothing indexed yet, not an error.
	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("qdrant collection info status: %s", resp.Status)
	}

	var infoResp struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infoResp); err != nil {
		return 0, fmt.Errorf("decode collection info response: %w", err)
	}
	return infoResp.Result.PointsCount, nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(collection, vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(collection, vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(collection string, vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensured[collection] = vectorSize
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return 0
	}
}

func getStringSlicePayload(payload map[string]any, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
