// Fusion combinators: the three canonical reductions features use to turn
// a dispatch batch's []ServerResult[R] into one editor script decision.
// Kept here as a small shared library rather than duplicated per feature,
// since this is where most feature-to-feature source duplication would
// otherwise live.
package dispatch

import (
	"regexp"
	"sort"

	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// Tagged pairs a server with one item contributed by it, the shape
// per-server merge and goto-style flattening both produce.
type Tagged[T any] struct {
	Server registry.ServerId
	Item   T
}

// FirstNonEmpty scans results in registry order and returns the first
// server whose value is a non-empty slice. Used by goto and references.
func FirstNonEmpty[T any](results []ServerResult[[]T]) (registry.ServerId, []T, bool) {
	for _, r := range results {
		if r.Value != nil && len(*r.Value) > 0 {
			return r.Server, *r.Value, true
		}
	}
	return "", nil, false
}

// FirstNonNil is FirstNonEmpty's counterpart for single-valued (non-slice)
// results, e.g. switch-source-header's Option<Uri> or call-hierarchy's
// prepare result.
func FirstNonNil[T any](results []ServerResult[T]) (registry.ServerId, T, bool) {
	for _, r := range results {
		if r.Value != nil {
			return r.Server, *r.Value, true
		}
	}
	var zero T
	return "", zero, false
}

// FirstRespondingServerFlattened implements range-formatting's fusion rule:
// find the first server (in registry order) with any non-nil result, then
// flatten every non-nil result from that same server together. Distinct
// from FirstNonEmpty because one server can answer across several payloads
// (one per selection range) and an individual payload's edit list may
// legitimately be empty without meaning "no answer".
func FirstRespondingServerFlattened[T any](results []ServerResult[[]T]) (registry.ServerId, []T, bool) {
	var server registry.ServerId
	var found bool
	var out []T
	for _, r := range results {
		if r.Value == nil {
			continue
		}
		if !found {
			server, found = r.Server, true
		} else if r.Server != server {
			continue
		}
		out = append(out, *r.Value...)
	}
	return server, out, found
}

// MergePerServer concatenates every responding server's items, tagging
// each with its originating ServerId, in registry order. Used by
// AggregateCodeActions; callers post-sort as the feature requires.
func MergePerServer[T any](results []ServerResult[[]T]) []Tagged[T] {
	var out []Tagged[T]
	for _, r := range results {
		if r.Value == nil {
			continue
		}
		for _, item := range *r.Value {
			out = append(out, Tagged[T]{Server: r.Server, Item: item})
		}
	}
	return out
}

// codeActionKindBuckets is the fixed sort order for code-action kinds;
// anything not listed (including a bare Command) falls into "other".
var codeActionKindBuckets = []transport.CodeActionKind{
	"quickfix",
	"refactor",
	"refactor.extract",
	"refactor.inline",
	"refactor.rewrite",
	"source",
	"source.organizeImports",
}

func codeActionBucket(kind transport.CodeActionKind) int {
	for i, k := range codeActionKindBuckets {
		if k == kind {
			return i
		}
	}
	return len(codeActionKindBuckets) // "other"
}

// AggregateCodeActions implements the non-retry half of the code-action
// fusion rule: flatten every responding server's actions (tagged with
// their server, since resolve and execute-command both need to know which
// server owns an action), optionally filter by a title-matching pattern,
// then stable-sort by kind bucket. The retry-with-widened-range decision
// itself requires re-dispatching and is made by the caller, which keeps
// the same BatchKey across both attempts (see CallWithKey).
func AggregateCodeActions(results []ServerResult[[]transport.CodeActionOrCommand], pattern *regexp.Regexp) []Tagged[transport.CodeActionOrCommand] {
	merged := MergePerServer(results)
	if pattern != nil {
		filtered := merged[:0:0]
		for _, t := range merged {
			if pattern.MatchString(t.Item.Title()) {
				filtered = append(filtered, t)
			}
		}
		merged = filtered
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return codeActionBucket(merged[i].Item.Kind()) < codeActionBucket(merged[j].Item.Kind())
	})
	return merged
}

// AllEmpty reports whether every server in results returned an empty (or
// absent) list — the trigger condition, alongside an interactive request
// with a non-zero-span selection, for the code-action widened-range retry.
func AllEmpty[T any](results []ServerResult[[]T]) bool {
	for _, r := range results {
		if r.Value != nil && len(*r.Value) > 0 {
			return false
		}
	}
	return true
}
