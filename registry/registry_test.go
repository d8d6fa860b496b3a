package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon-lentz/lspbroker/position"
)

func settingsFor(name string) ServerSettings {
	return ServerSettings{Name: name, OffsetEncoding: position.UTF16}
}

func TestRegisterPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("clangd", settingsFor("clangd"))
	r.Register("rust-analyzer", settingsFor("rust-analyzer"))
	r.Register("texlab", settingsFor("texlab"))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []ServerId{"clangd", "rust-analyzer", "texlab"}, []ServerId{all[0].ID, all[1].ID, all[2].ID})
}

func TestFirstIsMainServer(t *testing.T) {
	r := NewRegistry()
	r.Register("b", settingsFor("b"))
	r.Register("a", settingsFor("a"))

	entry, ok := r.First()
	require.True(t, ok)
	assert.Equal(t, ServerId("b"), entry.ID)
}

func TestReregisterDoesNotMove(t *testing.T) {
	r := NewRegistry()
	r.Register("a", settingsFor("a"))
	r.Register("b", settingsFor("b"))
	r.Register("a", settingsFor("a-updated"))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, ServerId("a"), all[0].ID)
	assert.Equal(t, "a-updated", all[0].Settings.Name)
}

func TestServersFiltersAndPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("rust-analyzer", settingsFor("rust-analyzer"))
	r.Register("clangd", settingsFor("clangd"))
	r.Register("texlab", settingsFor("texlab"))

	got := r.Servers([]ServerId{"texlab", "rust-analyzer"})
	require.Len(t, got, 2)
	assert.Equal(t, ServerId("rust-analyzer"), got[0].ID)
	assert.Equal(t, ServerId("texlab"), got[1].ID)
}

func TestUnregisterRemovesFromOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("a", settingsFor("a"))
	r.Register("b", settingsFor("b"))
	r.Unregister("a")

	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Len(t, r.All(), 1)
}

func TestAttemptServerCapability(t *testing.T) {
	s := ServerSettings{Capabilities: Capabilities{CodeAction: true}}
	assert.True(t, AttemptServerCapability("a", s, FeatureCodeAction, nil))
	assert.False(t, AttemptServerCapability("a", s, FeatureRename, nil))

	denyAll := func(ServerId, Feature) bool { return false }
	assert.False(t, AttemptServerCapability("a", s, FeatureCodeAction, denyAll))
}
