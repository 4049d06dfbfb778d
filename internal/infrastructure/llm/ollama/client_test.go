package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeneratorSendsPromptAndTrimsResponse(t *testing.T) {
	var capturedModel string
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedModel, _ = payload["model"].(string)
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"  the answer  "}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen-model", "embed-model", Options{})
	gen := NewGenerator(client)
	out, err := gen.Generate(context.Background(), "What penalties apply?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "the answer" {
		t.Fatalf("expected trimmed response, got %q", out)
	}
	if capturedModel != "gen-model" {
		t.Fatalf("expected gen-model, got %q", capturedModel)
	}
	if !strings.Contains(capturedPrompt, "What penalties apply?") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestEmbedBatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		embeddings := make([][]float32, len(payload.Input))
		for i := range payload.Input {
			embeddings[i] = []float32{float32(i), 0.5}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", Options{})
	embedder := NewEmbedder(client)
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}

func TestEmbedEmptyInputSkipsRequest(t *testing.T) {
	client := New("http://localhost:9", "gen", "embed", Options{})
	embedder := NewEmbedder(client)
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil vectors, got %v", vectors)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", Options{})
	embedder := NewEmbedder(client)
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
