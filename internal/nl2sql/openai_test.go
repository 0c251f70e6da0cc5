package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIPlannerParsesPlan(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"kind\":\"sql\",\"message\":\"ok\",\"sql\":\"SELECT 1\"}"}}]}`))
	}))
	defer srv.Close()

	planner, err := NewOpenAIPlanner(OpenAIConfig{BaseURL: srv.URL, APIKey: "k1", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIPlanner() error = %v", err)
	}

	plan, err := planner.Plan(context.Background(), Request{
		Question:      "how many rows",
		SchemaText:    "TABLE public.t\n  - id (integer)",
		Mode:          "read_only",
		MaxStatements: 1,
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Kind != PlanSQL || plan.SQL != "SELECT 1" {
		t.Fatalf("plan = %+v", plan)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer k1" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPayload["model"] != "test-model" {
		t.Fatalf("model = %v", gotPayload["model"])
	}
	messages, ok := gotPayload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", gotPayload["messages"])
	}
	user := messages[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "SCHEMA:") || !strings.Contains(content, "QUESTION:") {
		t.Fatalf("user prompt = %q", content)
	}
}

func TestOpenAIPlannerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	planner, err := NewOpenAIPlanner(OpenAIConfig{BaseURL: srv.URL, APIKey: "k1"})
	if err != nil {
		t.Fatalf("NewOpenAIPlanner() error = %v", err)
	}
	if _, err := planner.Plan(context.Background(), Request{Question: "q", Mode: "read_only"}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestOpenAIPlannerNonJSONPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1"}}]}`))
	}))
	defer srv.Close()

	planner, err := NewOpenAIPlanner(OpenAIConfig{BaseURL: srv.URL, APIKey: "k1"})
	if err != nil {
		t.Fatalf("NewOpenAIPlanner() error = %v", err)
	}
	_, err = planner.Plan(context.Background(), Request{Question: "q", Mode: "read_only"})
	if err == nil || !strings.Contains(err.Error(), "did not return JSON") {
		t.Fatalf("error = %v", err)
	}
}

func TestNewOpenAIPlannerValidation(t *testing.T) {
	if _, err := NewOpenAIPlanner(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewOpenAIPlanner(OpenAIConfig{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
