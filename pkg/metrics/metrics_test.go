package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	reg := InitRegistry()
	require.NotNil(t, reg)
	assert.True(t, IsEnabled())
	assert.Same(t, reg, GetRegistry())

	// idempotent
	assert.Same(t, reg, InitRegistry())
}

func TestNewServerRequiresRegistry(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	_, err := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	require.Error(t, err)

	InitRegistry()
	s, err := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NotNil(t, s)
}
