package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// NATSReadyTimeout bounds the wait for the embedded server to accept
// connections. Store tests reuse it as their ceiling for JetStream
// round trips.
const NATSReadyTimeout = 5 * time.Second

// StartEmbeddedNATS runs a JetStream-enabled NATS server inside the test
// process and returns a JetStream context connected to it.
//
// The server picks a random port and keeps its JetStream state under a
// "jetstream" subdirectory of the test's temp dir, so parallel test
// binaries never collide. Connection and server are torn down with the
// test, state included.
func StartEmbeddedNATS(t *testing.T) jetstream.JetStream {
	t.Helper()

	opts := &server.Options{
		ServerName: "reel-test",
		Host:       "127.0.0.1",
		Port:       -1, // random available port
		JetStream:  true,
		StoreDir:   filepath.Join(t.TempDir(), "jetstream"),
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err, "failed to create NATS server")

	ns.Start()

	if !ns.ReadyForConnections(NATSReadyTimeout) {
		t.Fatalf("embedded NATS server not ready within %v", NATSReadyTimeout)
	}

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "failed to connect to NATS server")

	js, err := jetstream.New(nc)
	require.NoError(t, err, "failed to create JetStream context")

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
	})

	return js
}
