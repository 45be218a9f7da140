// Package usage summarizes latency and token consumption from a run's event log.
package usage

import (
	"strings"
	"sync"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/tiktoken-go/tokenizer"
)

// CostPerMillionTokens is the coarse USD price used for the cost estimate.
const CostPerMillionTokens = 0.15

// NodeLatency is the average wall time a node spent between start and end.
type NodeLatency struct {
	Node    string  `json:"node"`
	AvgMS   float64 `json:"avg_ms"`
	Samples int     `json:"samples"`
}

// Summary is the usage panel for a set of visible events.
type Summary struct {
	Latencies   []NodeLatency `json:"latencies"`
	TotalTokens int           `json:"total_tokens"`
	// StreamedTokensEstimate counts streamed chunk text that arrived without reported usage.
	StreamedTokensEstimate int     `json:"streamed_tokens_estimate"`
	EstimatedCostUSD       float64 `json:"estimated_cost_usd"`
}

// usageMetadata is the modern usage block reported by chat models.
type usageMetadata struct {
	TotalTokens  int `mapstructure:"total_tokens"`
	InputTokens  int `mapstructure:"input_tokens"`
	OutputTokens int `mapstructure:"output_tokens"`
}

// tokenUsage is the legacy usage block found under response_metadata.
type tokenUsage struct {
	TotalTokens      int `mapstructure:"total_tokens"`
	PromptTokens     int `mapstructure:"prompt_tokens"`
	CompletionTokens int `mapstructure:"completion_tokens"`
}

// Summarizer computes Summaries. The tokenizer is loaded on first use.
type Summarizer struct {
	once  sync.Once
	codec tokenizer.Codec
}

// NewSummarizer creates a Summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

var defaultSummarizer = NewSummarizer()

// Summarize runs the shared Summarizer.
func Summarize(events []domain.Event, nodes []string) Summary {
	return defaultSummarizer.Summarize(events, nodes)
}

// Summarize computes per-node latency for nodes (in that order) and token totals.
// Events without a timestamp are skipped entirely.
func (s *Summarizer) Summarize(events []domain.Event, nodes []string) Summary {
	known := domain.NewNodeSet(nodes...)
	startTS := make(map[string]float64)
	samples := make(map[string][]float64)
	var sum Summary

	for _, e := range events {
		if e.Timestamp == nil || *e.Timestamp == 0 {
			continue
		}
		ts := *e.Timestamp

		if node := e.NodeHint(); known.Has(node) {
			if e.IsStart() {
				startTS[node] = ts
			}
			if e.IsEnd() {
				if st, ok := startTS[node]; ok && st != 0 {
					samples[node] = append(samples[node], (ts-st)*1000)
				}
			}
		}

		tokens, reported := tokensOf(e)
		sum.TotalTokens += tokens
		if !reported && e.Kind == domain.EventChatModelStream {
			sum.StreamedTokensEstimate += s.estimate(streamText(e))
		}
	}

	for _, node := range nodes {
		ms := samples[node]
		if len(ms) == 0 {
			continue
		}
		total := 0.0
		for _, v := range ms {
			total += v
		}
		sum.Latencies = append(sum.Latencies, NodeLatency{Node: node, AvgMS: total / float64(len(ms)), Samples: len(ms)})
	}

	sum.EstimatedCostUSD = float64(sum.TotalTokens) / 1_000_000 * CostPerMillionTokens
	return sum
}

func (s *Summarizer) estimate(text string) int {
	if text == "" {
		return 0
	}
	s.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.O200kBase)
		if err == nil {
			s.codec = codec
		}
	})
	if s.codec == nil {
		return 0
	}
	ids, _, err := s.codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

// tokensOf extracts reported token usage. The second result is true when the
// event carried a usage block at all, even a zero one.
func tokensOf(e domain.Event) (int, bool) {
	data, _ := e.Data.(map[string]any)
	chunk := field(data, "chunk")
	output := field(data, "output")

	var candidates []any
	var legacy []any
	switch {
	case e.Kind == domain.EventChatModelEnd:
		candidates = []any{field(output, "usage_metadata"), field(chunk, "usage_metadata"), field(data, "usage_metadata")}
		legacy = []any{
			field(field(chunk, "response_metadata"), "token_usage"),
			field(field(output, "response_metadata"), "token_usage"),
			field(field(data, "response_metadata"), "token_usage"),
			e.Metadata["token_usage"],
		}
	case e.Kind == domain.EventChatModelStream:
		candidates = []any{field(chunk, "usage_metadata")}
		legacy = []any{field(field(chunk, "response_metadata"), "token_usage")}
	case e.Kind == domain.EventChainEnd && strings.Contains(e.Name, "ChatOpenAI"):
		candidates = []any{field(output, "usage_metadata"), field(data, "usage_metadata")}
		legacy = []any{
			field(field(output, "response_metadata"), "token_usage"),
			field(field(data, "response_metadata"), "token_usage"),
			e.Metadata["token_usage"],
		}
	default:
		return 0, false
	}

	for _, c := range candidates {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		var um usageMetadata
		if err := mapstructure.Decode(m, &um); err != nil {
			continue
		}
		return combine(um.TotalTokens, um.InputTokens, um.OutputTokens), true
	}

	for _, c := range legacy {
		switch v := c.(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		case map[string]any:
			var tu tokenUsage
			if err := mapstructure.Decode(v, &tu); err != nil {
				continue
			}
			return combine(tu.TotalTokens, tu.PromptTokens, tu.CompletionTokens), true
		}
	}
	return 0, false
}

func combine(total, in, out int) int {
	if total > 0 {
		return total
	}
	if in > 0 && out > 0 {
		return in + out
	}
	return 0
}

// streamText returns the text content of a streamed chunk.
func streamText(e domain.Event) string {
	data, _ := e.Data.(map[string]any)
	switch c := field(data, "chunk").(type) {
	case string:
		return c
	case map[string]any:
		if s, ok := c["content"].(string); ok {
			return s
		}
	}
	return ""
}

func field(v any, key string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}
