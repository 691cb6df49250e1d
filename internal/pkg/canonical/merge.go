// Package canonical centralizes the read-modify-write merge applied to
// canonical JSON documents. Every upsert goes through one policy-driven
// merge instead of per-handler spread logic.
package canonical

import (
	"encoding/json"
	"fmt"
)

// Rule decides how one field path merges.
type Rule int

const (
	// OverwriteIfPresent takes the incoming value unless it is absent
	// (nil, empty string, empty object/array). This is the default
	// "keep prior value if new value absent" policy.
	OverwriteIfPresent Rule = iota
	// KeepExisting keeps the existing value once it is set, regardless of
	// the incoming one. Used for createdAt and first-seen timestamps.
	KeepExisting
	// AlwaysOverwrite takes the incoming value even when it is empty.
	AlwaysOverwrite
)

// Policy maps dotted field paths ("subscription.activatedAt") to rules.
// Paths not listed use Default.
type Policy struct {
	Default Rule
	Fields  map[string]Rule
}

// Merge folds incoming into existing according to the policy and returns the
// merged map. Nested objects merge recursively; everything else is treated
// as a leaf.
func Merge(existing, incoming map[string]any, policy Policy) map[string]any {
	return mergeMaps(existing, incoming, "", policy)
}

// MergeDocuments merges two JSON-marshalable documents of the same shape and
// unmarshals the result into out.
func MergeDocuments(existing, incoming, out any, policy Policy) error {
	existingMap, err := toMap(existing)
	if err != nil {
		return fmt.Errorf("marshal existing: %w", err)
	}
	incomingMap, err := toMap(incoming)
	if err != nil {
		return fmt.Errorf("marshal incoming: %w", err)
	}
	merged := Merge(existingMap, incomingMap, policy)
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged: %w", err)
	}
	return json.Unmarshal(data, out)
}

func mergeMaps(existing, incoming map[string]any, prefix string, policy Policy) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}

	for key, incomingVal := range incoming {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		existingVal, hasExisting := merged[key]

		// Nested objects merge field by field
		if inMap, ok := incomingVal.(map[string]any); ok {
			exMap, _ := existingVal.(map[string]any)
			if exMap == nil {
				exMap = map[string]any{}
			}
			merged[key] = mergeMaps(exMap, inMap, path, policy)
			continue
		}

		rule := policy.Default
		if r, ok := policy.Fields[path]; ok {
			rule = r
		}

		switch rule {
		case AlwaysOverwrite:
			merged[key] = incomingVal
		case KeepExisting:
			if !hasExisting || isAbsent(existingVal) {
				merged[key] = incomingVal
			}
		default: // OverwriteIfPresent
			if !isAbsent(incomingVal) {
				merged[key] = incomingVal
			}
		}
	}
	return merged
}

func isAbsent(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

func toMap(doc any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
