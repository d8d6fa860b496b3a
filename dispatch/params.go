package dispatch

import "github.com/simon-lentz/lspbroker/registry"

// RequestParams is the dispatcher's input for one batch: either the same
// payload broadcast to every eligible server (All) or distinct per-server
// payloads (Each). Every batch in this broker carries exactly one
// broadcast payload in practice (the fan-out multiplicity comes from the
// server list, not a list of payloads); All still accepts a slice to keep
// the two variants structurally uniform.
type RequestParams[P any] struct {
	all  []P
	each map[registry.ServerId][]P
}

// All broadcasts payload to every eligible server.
func All[P any](payload P) RequestParams[P] {
	return RequestParams[P]{all: []P{payload}}
}

// Each sends each server only the payloads listed for it; servers absent
// from byServer are not consulted at all.
func Each[P any](byServer map[registry.ServerId][]P) RequestParams[P] {
	return RequestParams[P]{each: byServer}
}

// IsEach reports whether params was built with Each.
func (p RequestParams[P]) IsEach() bool { return p.each != nil }
