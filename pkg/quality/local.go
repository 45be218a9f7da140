package quality

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ports"
)

// Flag messages produced by LocalScorer.
const (
	FlagNoContent = "No question or draft available for analysis."
	FlagOffTopic  = "Answer may be off topic relative to question."
	FlagLowCite   = "Citation coverage is low."
	FlagShallow   = "Answer seems shallow."
)

// A draft reaches full marks at four citations and 800 characters.
const (
	citationTarget = 4.0
	lengthTarget   = 800.0
)

var wordPattern = regexp.MustCompile(`\w+`)

// LocalScorer scores drift in-process with word-overlap, citation and length heuristics.
// It reads the question, draft (or final), and citations fields of the state.
type LocalScorer struct{}

var _ ports.DriftScorer = LocalScorer{}

// Score never fails.
func (LocalScorer) Score(_ context.Context, state map[string]any) ports.DriftResult {
	return ports.DriftResult{Report: Heuristic(state)}
}

// Heuristic computes the drift report. Lower drift is better.
func Heuristic(state map[string]any) domain.DriftReport {
	question, _ := state["question"].(string)
	draft, _ := state["draft"].(string)
	if draft == "" {
		draft, _ = state["final"].(string)
	}

	if question == "" || draft == "" {
		return domain.DriftReport{DriftScore: 1.0, Flags: []string{FlagNoContent}}
	}

	qWords := words(question)
	dWords := words(draft)
	overlap := 0.0
	if len(qWords) > 0 {
		shared := 0
		for w := range qWords {
			if _, ok := dWords[w]; ok {
				shared++
			}
		}
		overlap = float64(shared) / float64(len(qWords))
	}

	citations, _ := state["citations"].([]any)
	cite := min(1.0, float64(len(citations))/citationTarget)
	length := min(1.0, float64(utf8.RuneCountInString(draft))/lengthTarget)

	drift := 1.0 - (0.5*overlap + 0.3*cite + 0.2*length)
	drift = max(0.0, min(1.0, drift))

	flags := []string{}
	if overlap < 0.25 {
		flags = append(flags, FlagOffTopic)
	}
	if cite < 0.5 {
		flags = append(flags, FlagLowCite)
	}
	if length < 0.4 {
		flags = append(flags, FlagShallow)
	}

	return domain.DriftReport{
		DriftScore:  drift,
		Overlap:     overlap,
		CiteScore:   cite,
		LengthScore: length,
		Flags:       flags,
	}
}

func words(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		out[w] = struct{}{}
	}
	return out
}
