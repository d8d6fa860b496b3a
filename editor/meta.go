package editor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/registry"
)

// Request is one decoded inbound editor record: the identifying metadata,
// the LSP method name it routes on (the same method vocabulary the core
// uses against the transport, e.g. "textDocument/definition" or
// "textDocument/codeLens"), and the feature-specific parameter payload,
// left as raw JSON so each feature entry point unmarshals only the fields
// it needs.
type Request struct {
	Meta   dispatch.EditorMeta
	Method string
	Params json.RawMessage
}

type wireRequest struct {
	Method  string          `json:"method"`
	Buffile string          `json:"buffile"`
	Client  string          `json:"client"`
	Servers []string        `json:"servers"`
	Hook    bool            `json:"hook"`
	Fifo    string          `json:"fifo"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// DecodeRequest decodes one inbound record. Input is preprocessed with
// tidwall/jsonc so hand-edited request templates may carry "//" and
// "/* */" comments and trailing commas, the same tolerance the broker's
// config loader gives its own input.
func DecodeRequest(line []byte) (Request, error) {
	w := wireRequest{Version: -1}
	if err := json.Unmarshal(jsonc.ToJSON(line), &w); err != nil {
		return Request{}, fmt.Errorf("decode editor request: %w", err)
	}
	servers := make([]registry.ServerId, len(w.Servers))
	for i, s := range w.Servers {
		servers[i] = registry.ServerId(s)
	}
	if w.Method == "" {
		return Request{}, fmt.Errorf("decode editor request: missing method")
	}
	return Request{
		Meta: dispatch.EditorMeta{
			Buffile: w.Buffile,
			Client:  w.Client,
			Servers: servers,
			Hook:    w.Hook,
			Fifo:    w.Fifo,
			Version: w.Version,
		},
		Method: w.Method,
		Params: w.Params,
	}, nil
}

// Scanner decodes a stream of newline-delimited inbound records.
type Scanner struct {
	s *bufio.Scanner
}

// NewScanner wraps r as a source of decoded Requests, one per line.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Scanner{s: s}
}

// Next decodes the next non-blank line, or returns io.EOF once the stream
// is exhausted.
func (sc *Scanner) Next() (Request, error) {
	for sc.s.Scan() {
		line := bytes.TrimSpace(sc.s.Bytes())
		if len(line) == 0 {
			continue
		}
		return DecodeRequest(line)
	}
	if err := sc.s.Err(); err != nil {
		return Request{}, fmt.Errorf("scan editor request: %w", err)
	}
	return Request{}, io.EOF
}
