package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/config"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:           "127.0.0.1",
		Port:           -1, // Random port
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 2048,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "convoscan.analysis.abc.completed", Subject("convoscan", "abc"))
}

func TestNATSPublisher_PublishCompleted(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("test.analysis.*.completed", msgs)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	pub, err := Connect(config.EventsConfig{
		URL:           server.ClientURL(),
		SubjectPrefix: "test",
		ReconnectWait: time.Second,
		MaxReconnects: 1,
	}, nil)
	require.NoError(t, err)
	defer pub.Close()

	payload := map[string]any{"id": "a1", "risk_score": 42}
	require.NoError(t, pub.PublishCompleted(context.Background(), "a1", payload))

	select {
	case m := <-msgs:
		assert.Equal(t, "test.analysis.a1.completed", m.Subject)
		var got map[string]any
		require.NoError(t, json.Unmarshal(m.Data, &got))
		assert.Equal(t, "a1", got["id"])
		assert.Equal(t, float64(42), got["risk_score"])
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNATSPublisher_Closed(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	pub := NewNATSPublisher(nc, "", nil)
	nc.Close()

	err = pub.PublishCompleted(context.Background(), "x", struct{}{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, pub.Close(), "borrowed connections are left alone")
}

func TestNATSPublisher_MarshalError(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	err = NewNATSPublisher(nc, "p", nil).PublishCompleted(context.Background(), "x", map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishCompleted(context.Background(), "id", nil))
	assert.NoError(t, p.Close())
}
