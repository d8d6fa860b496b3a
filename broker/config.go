package broker

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// ServerConfig is one entry in the session's server launch list: enough
// to both spawn the process (Command/Args) and register it
// (Name/RootPath/OffsetEncoding/Capabilities). This is the one piece of
// static, file-backed configuration the broker owns; it describes what to
// launch, not anything about an editing session's state.
type ServerConfig struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Command        string                `json:"command"`
	Args           []string              `json:"args"`
	RootPath       string                `json:"rootPath"`
	OffsetEncoding string                `json:"offsetEncoding"`
	Capabilities   registry.Capabilities `json:"capabilities"`
}

// SessionConfig is the full startup launch list, read once at process
// start from the path given by -servers.
type SessionConfig struct {
	Servers []ServerConfig `json:"servers"`
}

// LoadSessionConfig reads and parses path as a server launch list. The
// contents are preprocessed with tidwall/jsonc, the same comment/trailing
// comma tolerance editor.DecodeRequest gives inbound request records, so
// a hand-maintained launch file may carry "//" explanations next to each
// server entry.
func LoadSessionConfig(path string) (SessionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("load session config: %w", err)
	}
	var cfg SessionConfig
	if err := json.Unmarshal(jsonc.ToJSON(raw), &cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("load session config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Build turns a parsed SessionConfig into a populated Registry and the
// transport.ProcessConfig list NewStdioCaller needs to actually spawn
// each server. The registry is populated eagerly: every configured server
// is registered in launch order regardless of whether its process has
// started yet, since First() (the "main server" for presentation) must
// reflect launch order, not startup-race order.
func (cfg SessionConfig) Build() (*registry.Registry, []transport.ProcessConfig, error) {
	reg := registry.NewRegistry()
	procs := make([]transport.ProcessConfig, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		enc, ok := position.ParseOffsetEncoding(s.OffsetEncoding)
		if !ok {
			enc = position.UTF16
		}
		settings := registry.ServerSettings{
			Name:           s.Name,
			RootPath:       s.RootPath,
			OffsetEncoding: enc,
			Capabilities:   s.Capabilities,
		}
		id := registry.ServerId(s.ID)
		reg.Register(id, settings)
		procs = append(procs, transport.ProcessConfig{
			ID:       id,
			Command:  s.Command,
			Args:     s.Args,
			Settings: settings,
		})
	}
	return reg, procs, nil
}
