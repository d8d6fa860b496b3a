package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/simon-lentz/lspbroker/registry"
)

// ProcessConfig is everything needed to spawn one language server process
// as a stdio-framed JSON-RPC peer: the server's identity in the registry,
// how to start it, and the settings the registry stores about it.
type ProcessConfig struct {
	ID       registry.ServerId
	Command  string
	Args     []string
	Settings registry.ServerSettings
}

// NotificationHandler receives server-to-client notifications the stdio
// transport cannot correlate to an outstanding Call — chiefly
// textDocument/publishDiagnostics, which a language server sends
// unprompted whenever its diagnostics for a buffer change.
type NotificationHandler interface {
	HandleNotification(server registry.ServerId, method string, params json.RawMessage)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  any             `json:"params,omitempty"`
}

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("lsp server error %d: %s", e.Code, e.Message) }

// process is one spawned language server: its subprocess handle, the
// write side of the Content-Length-framed stdio protocol, and the table
// of requests awaiting a reply.
type process struct {
	id     registry.ServerId
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
	logger *slog.Logger

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan rpcMessage
}

// StdioCaller implements transport.Caller and transport.Notifier by
// speaking the standard LSP stdio framing ("Content-Length: N\r\n\r\n"
// followed by a JSON-RPC body) to one subprocess per configured server.
// This is the broker's own concrete instance of the external transport
// collaborator the core assumes; everything above this type (dispatch,
// fusion, feature entry points) depends only on the Caller/Notifier
// interfaces and never on StdioCaller directly.
type StdioCaller struct {
	logger  *slog.Logger
	handler NotificationHandler
	procs   map[registry.ServerId]*process
}

// NewStdioCaller spawns one process per entry in configs and begins
// reading its stdio stream for responses and notifications. If any spawn
// fails, the processes already started are killed and the error is
// returned; callers get an all-or-nothing startup.
func NewStdioCaller(configs []ProcessConfig, handler NotificationHandler, logger *slog.Logger) (*StdioCaller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := &StdioCaller{
		logger:  logger.With(slog.String("component", "transport.stdio")),
		handler: handler,
		procs:   make(map[registry.ServerId]*process, len(configs)),
	}
	for _, cfg := range configs {
		p, err := startProcess(cfg, sc.logger)
		if err != nil {
			sc.Close()
			return nil, fmt.Errorf("start server %s: %w", cfg.ID, err)
		}
		sc.procs[cfg.ID] = p
		go sc.readLoop(p)
	}
	return sc, nil
}

func startProcess(cfg ProcessConfig, logger *slog.Logger) (*process, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &process{
		id:      cfg.ID,
		cmd:     cmd,
		stdin:   stdin,
		logger:  logger.With(slog.String("server", string(cfg.ID))),
		pending: make(map[string]chan rpcMessage),
	}
	p.reader = bufio.NewReader(stdout)
	return p, nil
}

// Close terminates every spawned process. Errors from individual kills are
// logged, not returned, since shutdown proceeds regardless.
func (sc *StdioCaller) Close() error {
	for _, p := range sc.procs {
		if err := p.cmd.Process.Kill(); err != nil {
			sc.logger.Warn("kill server process", slog.String("server", string(p.id)), slog.Any("error", err))
		}
	}
	return nil
}

// Call implements transport.Caller: send a JSON-RPC request to server and
// block until its matching response arrives, ctx is done, or the process
// is gone.
func (sc *StdioCaller) Call(ctx context.Context, server registry.ServerId, method string, params, result any) error {
	p, ok := sc.procs[server]
	if !ok {
		return fmt.Errorf("call %s: unknown server %s", method, server)
	}
	id := uuid.NewString()
	ch := make(chan rpcMessage, 1)
	p.pendingMu.Lock()
	p.pending[id] = ch
	p.pendingMu.Unlock()
	defer func() {
		p.pendingMu.Lock()
		delete(p.pending, id)
		p.pendingMu.Unlock()
	}()

	if err := p.write(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("call %s on %s: %w", method, server, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		return json.Unmarshal(msg.Result, result)
	}
}

// Notify implements transport.Notifier: send a fire-and-forget JSON-RPC
// notification (no id, no reply expected).
func (sc *StdioCaller) Notify(server registry.ServerId, method string, params any) {
	p, ok := sc.procs[server]
	if !ok {
		sc.logger.Warn("notify: unknown server", slog.String("server", string(server)), slog.String("method", method))
		return
	}
	if err := p.write(rpcRequest{JSONRPC: "2.0", Method: method, Params: params}); err != nil {
		sc.logger.Error("notify write failed", slog.String("server", string(server)), slog.String("method", method), slog.Any("error", err))
	}
}

func (p *process) write(req rpcRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := fmt.Fprintf(p.stdin, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = p.stdin.Write(body)
	return err
}

// readLoop decodes one Content-Length-framed message at a time from the
// server's stdout, routing replies to the waiting Call and everything
// else (the server's own requests and notifications) to the
// NotificationHandler.
func (sc *StdioCaller) readLoop(p *process) {
	tp := textproto.NewReader(p.reader)
	for {
		header, err := tp.ReadMIMEHeader()
		if err != nil {
			if err != io.EOF {
				p.logger.Warn("stdio read header", slog.Any("error", err))
			}
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(header.Get("Content-Length")))
		if err != nil {
			p.logger.Warn("stdio malformed content-length", slog.Any("error", err))
			return
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(tp.R, body); err != nil {
			p.logger.Warn("stdio read body", slog.Any("error", err))
			return
		}
		var msg rpcMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			p.logger.Warn("stdio decode message", slog.Any("error", err))
			continue
		}
		if msg.ID != nil {
			p.pendingMu.Lock()
			ch, ok := p.pending[*msg.ID]
			p.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}
		if msg.Method != "" && sc.handler != nil {
			sc.handler.HandleNotification(p.id, msg.Method, msg.Params)
		}
	}
}
