// Package tagset computes the delta between a defect's current tags and a
// requested full replacement. Tag identity is case-insensitive; the first
// spelling seen wins.
package tagset

import (
	"sort"
	"strings"
)

// Delta describes one full-replace reconciliation. From and To are sorted
// snapshots for the history payload; Remove and Add are the row-level
// operations for storage.
type Delta struct {
	From    []string
	To      []string
	Remove  []string
	Add     []string
	Changed bool
}

// Normalize trims whitespace, drops empties and deduplicates
// case-insensitively, keeping the first spelling and the input order.
func Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Reconcile compares the current tag set against the requested replacement.
// Both sides are normalized first. No partial updates exist: every PUT is a
// full replacement, so Remove/Add together express the whole rewrite.
func Reconcile(current, requested []string) Delta {
	cur := Normalize(current)
	req := Normalize(requested)

	curKeys := make(map[string]string, len(cur))
	for _, tag := range cur {
		curKeys[strings.ToLower(tag)] = tag
	}
	reqKeys := make(map[string]string, len(req))
	for _, tag := range req {
		reqKeys[strings.ToLower(tag)] = tag
	}

	delta := Delta{
		From: sortedCopy(cur),
		To:   sortedCopy(req),
	}
	for _, tag := range cur {
		if _, ok := reqKeys[strings.ToLower(tag)]; !ok {
			delta.Remove = append(delta.Remove, tag)
		}
	}
	for _, tag := range req {
		if _, ok := curKeys[strings.ToLower(tag)]; !ok {
			delta.Add = append(delta.Add, tag)
		}
	}
	delta.Changed = len(delta.Remove) > 0 || len(delta.Add) > 0
	return delta
}

func sortedCopy(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	sort.Strings(out)
	return out
}
