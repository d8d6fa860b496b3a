package dispatch

import "github.com/simon-lentz/lspbroker/registry"

// EditorMeta carries the identifying details of one editor-originated
// request: which buffer it concerns, which servers to consult, whether it
// fired from a hook versus an interactive command, and the optional
// synchronous reply fifo.
type EditorMeta struct {
	Buffile string
	Client  string
	Servers []registry.ServerId
	Hook    bool
	Fifo    string // empty when the request has no synchronous reply channel
	Version int    // buffer version captured at dispatch time; -1 if not tracked
}

// Synchronous reports whether the request expects a reply written to Fifo.
func (m EditorMeta) Synchronous() bool { return m.Fifo != "" }
