package feature

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"

	"github.com/simon-lentz/lspbroker/registry"
)

func writeEmptyFile(path string) error {
	return os.WriteFile(path, nil, 0o644)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

var errNoHandler = errors.New("fakeCaller: no handler registered for method")

// fakeCaller is a minimal transport.Caller for exercising feature entry
// points without a real LSP server: each method name maps to a handler
// that produces a typed result, or is absent to simulate a server that
// never answers (downgraded to None by the dispatcher).
type fakeCaller struct {
	mu       sync.Mutex
	handlers map[string]func(server registry.ServerId, params any) (any, error)
	calls    []string
}

func (f *fakeCaller) Call(_ context.Context, server registry.ServerId, method string, params, result any) error {
	f.mu.Lock()
	f.calls = append(f.calls, string(server)+":"+method)
	f.mu.Unlock()

	h, ok := f.handlers[method]
	if !ok {
		return errNoHandler
	}
	v, err := h(server, params)
	if err != nil {
		return err
	}
	// result is always a pointer to the dispatcher's R; v is the
	// corresponding value the test handler constructed.
	reflect.ValueOf(result).Elem().Set(reflect.ValueOf(v))
	return nil
}
