package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateResponseHelpers(t *testing.T) {
	resp := &GenerateResponse{Candidates: []Candidate{{
		Content: Content{Role: "model", Parts: []Part{
			{Text: "Here is "},
			{FunctionCall: &FunctionCall{ID: "a", Name: "searchLocalEvents"}},
			{Text: "what I found."},
			{FunctionCall: &FunctionCall{ID: "b", Name: "addAttendee"}},
		}},
		GroundingMetadata: &GroundingMetadata{GroundingChunks: []GroundingChunk{
			{Web: &WebSource{URI: "https://u1.example"}},
			{Web: nil},
			{Web: &WebSource{URI: ""}},
			{Web: &WebSource{URI: "https://u2.example"}},
		}},
	}}}

	if got := resp.Text(); got != "Here is what I found." {
		t.Errorf("Text() = %q", got)
	}
	calls := resp.FunctionCalls()
	if len(calls) != 2 || calls[0].ID != "a" || calls[1].ID != "b" {
		t.Errorf("FunctionCalls() = %v", calls)
	}
	sources := resp.GroundingSources()
	if len(sources) != 2 || sources[0] != "https://u1.example" {
		t.Errorf("GroundingSources() = %v", sources)
	}

	var empty *GenerateResponse
	if empty.Text() != "" || empty.FunctionCalls() != nil || empty.GroundingSources() != nil {
		t.Error("nil response helpers must be zero-valued")
	}
}

func TestChatSessionReplaysHistory(t *testing.T) {
	var requests []GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests = append(requests, req)
		json.NewEncoder(w).Encode(GenerateResponse{Candidates: []Candidate{
			{Content: Content{Role: "model", Parts: []Part{{Text: "ok"}}}},
		}})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
		BaseURL: srv.URL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sess := client.NewSession("be helpful", []Tool{{GoogleSearch: &GoogleSearch{}}})

	if _, err := sess.Send(context.Background(), []Part{{Text: "first"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := sess.Send(context.Background(), []Part{{Text: "second"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	if requests[0].SystemInstruction == nil {
		t.Error("system instruction missing")
	}
	// Second request replays: user, model, user.
	contents := requests[1].Contents
	if len(contents) != 3 {
		t.Fatalf("expected replayed history of 3 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" || contents[2].Role != "user" {
		t.Errorf("unexpected roles %q %q %q", contents[0].Role, contents[1].Role, contents[2].Role)
	}
}

func TestChatSessionRollsBackOnFailure(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var req GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 1 {
			t.Errorf("failed turn must not linger in history, got %d contents", len(req.Contents))
		}
		json.NewEncoder(w).Encode(GenerateResponse{Candidates: []Candidate{
			{Content: Content{Role: "model", Parts: []Part{{Text: "ok"}}}},
		}})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{APIKey: "k", Model: "m", BaseURL: srv.URL},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	sess := client.NewSession("", nil)

	if _, err := sess.Send(context.Background(), []Part{{Text: "hi"}}); err == nil {
		t.Fatal("expected API error")
	}
	fail = false
	if _, err := sess.Send(context.Background(), []Part{{Text: "hi again"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendWithoutAPIKey(t *testing.T) {
	client := NewClient(ClientConfig{Model: "m"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sess := client.NewSession("", nil)

	if _, err := sess.Send(context.Background(), []Part{{Text: "hi"}}); err == nil {
		t.Fatal("expected missing-credential error")
	}
}
