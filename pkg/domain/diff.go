package domain

import (
	"encoding/json"
	"reflect"
	"sort"
)

// DiffItem is one leaf-level change between two state mappings.
// It is designed to be serialized to JSON for direct display on the client.
type DiffItem struct {
	Path   string `json:"path"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// Diff calculates the structural differences between before and after.
// The result is a flat list of dotted paths; it is not a patch and cannot be applied.
// A value missing on one side and an end marker on the other is never reported.
// Between two present values only the "__end__" sentinel is suppressed; a
// value moving to "END" is an ordinary change.
func Diff(before, after any, basePath string) []DiffItem {
	var diffs []DiffItem

	if before == nil && after == nil {
		return diffs
	}

	if before == nil || after == nil {
		present := before
		if present == nil {
			present = after
		}
		if !IsEndMarker(present) {
			diffs = append(diffs, DiffItem{Path: orRoot(basePath), Before: before, After: after})
		}
		return diffs
	}

	if isEndSentinel(before) || isEndSentinel(after) {
		return diffs
	}

	// Sequences are compared as opaque blocks.
	beforeSeq, afterSeq := isSequence(before), isSequence(after)
	if beforeSeq || afterSeq {
		if !beforeSeq || !afterSeq || !Equal(before, after) {
			diffs = append(diffs, DiffItem{Path: orRoot(basePath), Before: before, After: after})
		}
		return diffs
	}

	beforeMap, okBefore := asMapping(before)
	afterMap, okAfter := asMapping(after)
	if !okBefore || !okAfter {
		if !Equal(before, after) {
			diffs = append(diffs, DiffItem{Path: orRoot(basePath), Before: before, After: after})
		}
		return diffs
	}

	for _, k := range unionKeys(beforeMap, afterMap) {
		if IsReservedKey(k) {
			continue
		}

		a, b := beforeMap[k], afterMap[k]
		if a == nil && b == nil {
			continue
		}
		if isEndSentinel(a) || isEndSentinel(b) {
			continue
		}

		p := k
		if basePath != "" {
			p = basePath + "." + k
		}

		_, aIsMap := asMapping(a)
		_, bIsMap := asMapping(b)
		if aIsMap && bIsMap {
			diffs = append(diffs, Diff(a, b, p)...)
		} else if !Equal(a, b) {
			diffs = append(diffs, DiffItem{Path: p, Before: a, After: b})
		}
	}

	return diffs
}

// Equal compares two values by full structural equality.
// Values that differ only in Go representation (int vs float64) but serialize
// identically are considered equal, matching the JSON origin of stream state.
func Equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

func orRoot(path string) string {
	if path == "" {
		return RootPath
	}
	return path
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// asMapping returns v as a string-keyed map when it is a non-nil composite mapping.
func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// unionKeys returns the keys of both maps in sorted order so results are deterministic.
func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isEndSentinel(v any) bool {
	s, ok := v.(string)
	return ok && s == EndMarker
}
