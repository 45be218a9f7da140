package domain

import (
	"fmt"
	"strings"
)

var startHeadlines = map[string]string{
	"supervisor":  "Planning research approach...",
	"researcher":  "Searching the web for sources...",
	"synthesizer": "Synthesizing answer from notes...",
	"verifier":    "Verifying citations and quality...",
}

var endHeadlines = map[string]string{
	"supervisor":  "Plan created. Moving to researcher...",
	"researcher":  "Sources gathered. Moving to synthesizer...",
	"synthesizer": "Draft complete. Moving to verifier...",
	"verifier":    "Verification complete. Finalizing answer...",
}

// Headline summarizes what the agent is doing based on the last visible event.
func Headline(events []Event) string {
	if len(events) == 0 {
		return "Initializing agent..."
	}

	last := events[len(events)-1]
	node := last.NodeHint()

	switch {
	case last.IsStart():
		if h, ok := startHeadlines[node]; ok {
			return h
		}
		if node != "" {
			return fmt.Sprintf("Processing in %s...", node)
		}
	case last.IsEnd():
		if h, ok := endHeadlines[node]; ok {
			return h
		}
	case last.Kind == EventChatModelStream:
		return "Generating response..."
	case last.Kind == EventToolStart:
		if isSearchTool(last.Name) {
			return "Searching the web..."
		}
		if last.Name != "" {
			return fmt.Sprintf("Using tool: %s...", last.Name)
		}
	case last.Kind == EventToolEnd:
		if isSearchTool(last.Name) {
			return "Search complete. Processing results..."
		}
	}

	return "Processing..."
}

func isSearchTool(name string) bool {
	return strings.Contains(name, "tavily") || strings.Contains(name, "search")
}
