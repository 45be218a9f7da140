package domain

import "strings"

// Reserved markers emitted by the agent graph runtime.
const (
	// EndMarker is the sentinel key/value denoting graph termination.
	EndMarker = "__end__"
	// EndMarkerAlias is the alternative spelling of the terminal sentinel.
	EndMarkerAlias = "END"
	// InternalPrefix marks runtime-internal state fields.
	InternalPrefix = "__"
	// RootPath labels a change that applies to a whole value.
	RootPath = "root"
)

// IsEndMarker reports whether v is the end-of-graph sentinel value.
func IsEndMarker(v any) bool {
	s, ok := v.(string)
	return ok && (s == EndMarker || s == EndMarkerAlias)
}

// IsReservedKey reports whether a state key is runtime bookkeeping rather than user state.
func IsReservedKey(k string) bool {
	return k == EndMarker || k == EndMarkerAlias || strings.HasPrefix(k, InternalPrefix)
}

// CleanState returns a copy of state without reserved keys.
func CleanState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		if IsReservedKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}
