// Package openai implements a trainer over any OpenAI-compatible chat
// API (e.g. Nebius): candidates carry sampling parameters, checkpoints
// evaluate shards of a prompt suite, the score is the mean case score.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/metrics"
)

// Sampling parameter names read from a candidate. Other parameters are
// left to the space definition and ignored here.
const (
	ParamTemperature      = "temperature"
	ParamTopP             = "top_p"
	ParamMaxTokens        = "max_tokens"
	ParamPresencePenalty  = "presence_penalty"
	ParamFrequencyPenalty = "frequency_penalty"
)

// DefaultShardSize is how many prompt cases one checkpoint evaluates.
const DefaultShardSize = 4

// PromptCase is one evaluation case: the reply must contain Expect
// (case-insensitive) to score 1.0. An empty Expect accepts any
// non-empty reply.
type PromptCase struct {
	Prompt string `json:"prompt" yaml:"prompt"`
	Expect string `json:"expect" yaml:"expect"`
}

// Config holds the chat provider settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	User      string
	Provider  string
	Prompts   []PromptCase
	ShardSize int
	Logger    *zap.Logger
}

// SamplingTrainer tunes sampling parameters of a chat model. It is an
// API client, not a weight trainer: "training" replays the prompt
// suite under the candidate's sampling settings.
type SamplingTrainer struct {
	client    *openai.Client
	model     string
	user      string
	provider  string
	prompts   []PromptCase
	shardSize int
	logger    *zap.Logger
}

// NewSamplingTrainer creates an OpenAI-compatible sampling trainer.
func NewSamplingTrainer(cfg *Config) *SamplingTrainer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	shard := cfg.ShardSize
	if shard <= 0 {
		shard = DefaultShardSize
	}

	return &SamplingTrainer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		user:      cfg.User,
		provider:  cfg.Provider,
		prompts:   cfg.Prompts,
		shardSize: shard,
		logger:    cfg.Logger,
	}
}

// Fit implements domain.Trainer: it binds the candidate's sampling
// parameters into a base chat request. No API call happens yet.
func (t *SamplingTrainer) Fit(_ context.Context, cand candidate.Candidate) (domain.Model, error) {
	if len(t.prompts) == 0 {
		return nil, errors.New("prompt suite is empty")
	}

	base := openai.ChatCompletionRequest{
		Model: t.model,
		User:  t.user,
	}
	if v, ok := cand.Value(ParamTemperature); ok {
		base.Temperature = float32(v.Float())
	}
	if v, ok := cand.Value(ParamTopP); ok {
		base.TopP = float32(v.Float())
	}
	if v, ok := cand.Value(ParamMaxTokens); ok {
		base.MaxTokens = int(v.Int())
	}
	if v, ok := cand.Value(ParamPresencePenalty); ok {
		base.PresencePenalty = float32(v.Float())
	}
	if v, ok := cand.Value(ParamFrequencyPenalty); ok {
		base.FrequencyPenalty = float32(v.Float())
	}

	return &samplingModel{trainer: t, base: base}, nil
}

// Score implements domain.Evaluator: the mean case score over every
// prompt evaluated so far.
func (t *SamplingTrainer) Score(_ context.Context, m domain.Model) (float64, error) {
	sm, ok := m.(*samplingModel)
	if !ok {
		return 0, errors.New("model was not produced by this trainer")
	}
	if len(sm.scores) == 0 {
		return 0, errors.New("model has not been stepped")
	}
	var sum float64
	for _, s := range sm.scores {
		sum += s
	}
	return sum / float64(len(sm.scores)), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (t *SamplingTrainer) HealthCheck(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// samplingModel walks the prompt suite shard by shard.
type samplingModel struct {
	trainer *SamplingTrainer
	base    openai.ChatCompletionRequest
	next    int
	scores  []float64
}

// Step evaluates the next shard of prompt cases and reports done once
// the suite is exhausted.
func (m *samplingModel) Step(ctx context.Context) (bool, error) {
	end := m.next + m.trainer.shardSize
	if end > len(m.trainer.prompts) {
		end = len(m.trainer.prompts)
	}
	for ; m.next < end; m.next++ {
		score, err := m.trainer.evalCase(ctx, m.base, m.trainer.prompts[m.next])
		if err != nil {
			return false, fmt.Errorf("case %d: %w", m.next, err)
		}
		m.scores = append(m.scores, score)
	}
	return m.next >= len(m.trainer.prompts), nil
}

// evalCase sends one chat completion and grades the reply.
func (t *SamplingTrainer) evalCase(ctx context.Context, base openai.ChatCompletionRequest, pc PromptCase) (float64, error) {
	req := base
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: pc.Prompt},
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.TrainerRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		metrics.TrainerErrorsTotal.WithLabelValues(t.provider, t.model, "api_error").Inc()
		return 0, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.TrainerRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		metrics.TrainerErrorsTotal.WithLabelValues(t.provider, t.model, "empty_response").Inc()
		return 0, fmt.Errorf("empty completion response: %w", domain.ErrTrainerProviderError)
	}

	// Record success metrics
	metrics.TrainerRequestsTotal.WithLabelValues(t.provider, t.model, "success").Inc()
	metrics.TrainerRequestDuration.WithLabelValues(t.provider, t.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.TrainerTokensTotal.WithLabelValues(t.provider, t.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.TrainerTokensTotal.WithLabelValues(t.provider, t.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.TrainerTokensTotal.WithLabelValues(t.provider, t.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return gradeReply(resp.Choices[0].Message.Content, pc.Expect), nil
}

// gradeReply is a binary containment check. Good enough to rank
// sampling settings; swap in a rubric model if it ever stops being so.
func gradeReply(reply, expect string) float64 {
	reply = strings.TrimSpace(reply)
	if expect == "" {
		if reply != "" {
			return 1
		}
		return 0
	}
	if strings.Contains(strings.ToLower(reply), strings.ToLower(expect)) {
		return 1
	}
	return 0
}

// parseAPIError extracts a human-readable error from the API response.
// Rate limits map to domain.ErrRateLimited (429), everything else to
// domain.ErrTrainerProviderError (502).
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		wrap := wrapFor(reqErr.HTTPStatusCode)
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("completion API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrapFor(apiErr.HTTPStatusCode))
	}

	return fmt.Errorf("completion request failed: %w", domain.ErrTrainerProviderError)
}

func wrapFor(status int) error {
	if status == 429 {
		return domain.ErrRateLimited
	}
	return domain.ErrTrainerProviderError
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
