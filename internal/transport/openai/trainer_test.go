package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterTrainerMetrics()
	os.Exit(m.Run())
}

// chatRequest mirrors the OpenAI-compatible chat completion request.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func testCandidate(values map[string]param.Value) candidate.Candidate {
	return candidate.New(0, values)
}

func TestSamplingTrainer_FullRun(t *testing.T) {
	var lastReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&lastReq); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse("The answer is 42."))
	}))
	defer server.Close()

	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Prompts: []PromptCase{
			{Prompt: "6*7?", Expect: "42"},
			{Prompt: "40+2?", Expect: "42"},
			{Prompt: "meaning of life?", Expect: "42"},
			{Prompt: "answer?", Expect: "42"},
			{Prompt: "6*7 again?", Expect: "42"},
		},
		ShardSize: 4,
		Logger:    zap.NewNop(),
	})

	cand := testCandidate(map[string]param.Value{
		"temperature": param.Float(0.5),
		"top_p":       param.Float(0.25),
		"max_tokens":  param.Int(128),
	})

	model, err := tr.Fit(context.Background(), cand)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Первый shard — 4 кейса, ещё не done.
	done, err := model.Step(context.Background())
	if err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	if done {
		t.Error("done after first shard of 4/5 cases")
	}

	done, err = model.Step(context.Background())
	if err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	if !done {
		t.Error("not done after the full suite")
	}

	score, err := tr.Score(context.Background(), model)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}

	if lastReq.Model != "test-model" {
		t.Errorf("request model = %q", lastReq.Model)
	}
	if lastReq.Temperature != 0.5 {
		t.Errorf("request temperature = %v, want 0.5", lastReq.Temperature)
	}
	if lastReq.TopP != 0.25 {
		t.Errorf("request top_p = %v, want 0.25", lastReq.TopP)
	}
	if lastReq.MaxTokens != 128 {
		t.Errorf("request max_tokens = %d, want 128", lastReq.MaxTokens)
	}
	if len(lastReq.Messages) != 1 || lastReq.Messages[0].Role != "user" {
		t.Errorf("unexpected messages: %+v", lastReq.Messages)
	}
}

func TestSamplingTrainer_ScoreIsMeanOverCases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		// Отвечаем "yes" только на подсказанные промпты.
		content := "no"
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "good") {
			content = "yes"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(content))
	}))
	defer server.Close()

	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Prompts: []PromptCase{
			{Prompt: "good one", Expect: "yes"},
			{Prompt: "good two", Expect: "yes"},
			{Prompt: "bad one", Expect: "yes"},
			{Prompt: "bad two", Expect: "yes"},
		},
		Logger: zap.NewNop(),
	})

	model, err := tr.Fit(context.Background(), testCandidate(nil))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for {
		done, err := model.Step(context.Background())
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if done {
			break
		}
	}

	score, err := tr.Score(context.Background(), model)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0.5 {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestSamplingTrainer_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Prompts:  []PromptCase{{Prompt: "hi", Expect: ""}},
		Logger:   zap.NewNop(),
	})

	model, err := tr.Fit(context.Background(), testCandidate(nil))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	_, err = model.Step(context.Background())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestSamplingTrainer_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"detail": "upstream exploded"})
	}))
	defer server.Close()

	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Prompts:  []PromptCase{{Prompt: "hi", Expect: ""}},
		Logger:   zap.NewNop(),
	})

	model, err := tr.Fit(context.Background(), testCandidate(nil))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	_, err = model.Step(context.Background())
	if !errors.Is(err, domain.ErrTrainerProviderError) {
		t.Fatalf("err = %v, want ErrTrainerProviderError", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("err = %v, want detail from body", err)
	}
}

func TestSamplingTrainer_EmptyPromptSuite(t *testing.T) {
	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  "http://unused",
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})

	if _, err := tr.Fit(context.Background(), testCandidate(nil)); err == nil {
		t.Fatal("expected error for empty prompt suite")
	}
}

func TestSamplingTrainer_ScoreBeforeStep(t *testing.T) {
	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  "http://unused",
		Model:    "test-model",
		Provider: "test",
		Prompts:  []PromptCase{{Prompt: "hi", Expect: ""}},
		Logger:   zap.NewNop(),
	})

	model, err := tr.Fit(context.Background(), testCandidate(nil))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := tr.Score(context.Background(), model); err == nil {
		t.Fatal("expected error scoring an unstepped model")
	}
}

func TestSamplingTrainer_HealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer healthy.Close()

	tr := NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  healthy.URL,
		Model:    "test-model",
		Provider: "test",
		Prompts:  []PromptCase{{Prompt: "hi", Expect: ""}},
		Logger:   zap.NewNop(),
	})
	if err := tr.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	tr = NewSamplingTrainer(&Config{
		APIKey:   "test-key",
		BaseURL:  down.URL,
		Model:    "test-model",
		Provider: "test",
		Prompts:  []PromptCase{{Prompt: "hi", Expect: ""}},
		Logger:   zap.NewNop(),
	})
	if err := tr.HealthCheck(context.Background()); err == nil {
		t.Error("expected error from unhealthy provider")
	}
}

func TestGradeReply(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		expect string
		want   float64
	}{
		{"contains", "The answer is 42.", "42", 1},
		{"case insensitive", "PARIS is the capital", "paris", 1},
		{"missing", "no idea", "42", 0},
		{"empty expect accepts any reply", "something", "", 1},
		{"empty expect rejects empty reply", "   ", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gradeReply(tc.reply, tc.expect); got != tc.want {
				t.Errorf("gradeReply(%q, %q) = %v, want %v", tc.reply, tc.expect, got, tc.want)
			}
		})
	}
}

func TestParseAPIError_PlainError(t *testing.T) {
	err := parseAPIError(errors.New("dial tcp: connection refused"))
	if !errors.Is(err, domain.ErrTrainerProviderError) {
		t.Errorf("err = %v, want ErrTrainerProviderError", err)
	}
}
