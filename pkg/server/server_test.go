package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/glide/internal/adapter"
	"github.com/marmos91/glide/internal/protocol/glide"
	"github.com/marmos91/glide/pkg/registry"
	"github.com/marmos91/glide/pkg/staging"
)

func newTestServer(t *testing.T) (*Server, *adapter.Adapter) {
	t.Helper()
	store, err := staging.New(filepath.Join(t.TempDir(), "glides"))
	require.NoError(t, err)

	a := adapter.New(adapter.Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		ShutdownTimeout: 2 * time.Second,
	}, registry.New(), store, nil)

	return New(a, 2*time.Second), a
}

func TestServeStopsOnContextCancel(t *testing.T) {
	srv, a := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	// the listener comes up and accepts protocol traffic
	conn, err := net.Dial("tcp", a.GetListenerAddr())
	require.NoError(t, err)
	enc := glide.NewEncoder(conn)
	dec := glide.NewDecoder(conn)
	require.NoError(t, enc.Encode(glide.Username{Handle: "alice"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msg, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, glide.UsernameOk{}, msg)
	conn.Close()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
