// Package judge scores finished transcripts.
//
// LLM-type tests are scored metric by metric with an impartial-judge prompt;
// rule-type tests use deterministic string and regex checks and never touch
// a model.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/retry"
)

// DefaultThreshold is the pass mark applied when neither the metric nor the
// graph overrides it.
const DefaultThreshold = 0.7

const judgeSystemPrompt = `You are an impartial judge evaluating a conversation between a user and an agent.
Score how well the conversation satisfies the given criteria.
Respond with JSON only, in exactly this shape:
{"score": <number between 0.0 and 1.0>, "reasoning": "<one or two sentences>"}`

// MetricResult is the scored outcome of one evaluation criterion.
type MetricResult struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Verdict is the JSON document the judge model must return.
type Verdict struct {
	Score     *float64 `json:"score"`
	Reasoning *string  `json:"reasoning"`
}

// Judge scores transcripts against metrics.
type Judge struct {
	model            providers.Provider
	retrier          *retry.Controller
	defaultThreshold float64
}

// Option configures a Judge.
type Option func(*Judge)

// WithDefaultThreshold sets the graph-level fallback threshold used by
// metrics that do not declare their own.
func WithDefaultThreshold(t float64) Option {
	return func(j *Judge) {
		if t > 0 {
			j.defaultThreshold = t
		}
	}
}

// New creates a Judge backed by the given model.
func New(model providers.Provider, retrier *retry.Controller, opts ...Option) *Judge {
	j := &Judge{
		model:            model,
		retrier:          retrier,
		defaultThreshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// EvaluateMetrics scores the transcript against each metric in order. One
// metric failing to evaluate fails the whole call; a partial scorecard
// cannot distinguish "failed the metric" from "never scored".
func (j *Judge) EvaluateMetrics(ctx context.Context, conversationID string, transcript []driver.Turn, metrics []graph.Metric) ([]MetricResult, error) {
	results := make([]MetricResult, 0, len(metrics))
	for _, m := range metrics {
		r, err := j.evaluateMetric(ctx, conversationID, transcript, m)
		if err != nil {
			return nil, fmt.Errorf("judging metric %q: %w", m.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (j *Judge) evaluateMetric(ctx context.Context, conversationID string, transcript []driver.Turn, m graph.Metric) (MetricResult, error) {
	prompt := fmt.Sprintf("Criteria: %s\n\nConversation:\n%s", m.Criteria, driver.FormatTranscript(transcript))

	resp, err := retry.Do(ctx, j.retrier, func(callCtx context.Context) (providers.ChatResponse, error) {
		return j.model.Chat(callCtx, providers.ChatRequest{
			System:   judgeSystemPrompt,
			Messages: []providers.Message{{Role: "user", Content: prompt}},
			Metadata: map[string]any{
				"conversation_id": conversationID,
				"role":            "judge",
			},
		})
	})
	if err != nil {
		return MetricResult{}, err
	}

	verdict, err := ParseVerdict(resp.Content)
	if err != nil {
		return MetricResult{}, err
	}

	threshold := j.threshold(m)
	return MetricResult{
		Name:      m.Name,
		Passed:    *verdict.Score >= threshold,
		Score:     *verdict.Score,
		Threshold: threshold,
		Reasoning: *verdict.Reasoning,
	}, nil
}

// threshold resolves the pass mark: metric override, then graph default,
// then the built-in default.
func (j *Judge) threshold(m graph.Metric) float64 {
	if m.Threshold > 0 {
		return m.Threshold
	}
	return j.defaultThreshold
}

// ParseVerdict parses a judge response strictly. Markdown code fences are
// tolerated; missing fields or an out-of-range score are malformed, which
// classifies as a permanent provider failure.
func ParseVerdict(content string) (Verdict, error) {
	raw := stripCodeFences(content)

	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Verdict{}, malformed(fmt.Sprintf("judge verdict is not valid JSON: %v", err))
	}
	if v.Score == nil || v.Reasoning == nil {
		return Verdict{}, malformed("judge verdict missing score or reasoning")
	}
	if *v.Score < 0 || *v.Score > 1 {
		return Verdict{}, malformed(fmt.Sprintf("judge score %v outside [0,1]", *v.Score))
	}
	return v, nil
}

func malformed(msg string) error {
	return &providers.ProviderError{Type: providers.ErrorMalformedResponse, Message: msg}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// AllPassed reports whether every metric passed. An empty scorecard passes;
// a test with nothing to check has nothing to fail.
func AllPassed(results []MetricResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
