package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReconnectDisplacesOldConnection(t *testing.T) {
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	displaced := registry.Connect("user-1", first)
	assert.Nil(t, displaced)

	displaced = registry.Connect("user-1", second)
	assert.Same(t, first, displaced)

	require.True(t, registry.Send("user-1", OutEnvelope{Event: "ping"}))
	assert.Empty(t, first.events())
	assert.Len(t, second.events(), 1)
}

func TestRegistryStaleDisconnectKeepsNewConnection(t *testing.T) {
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Connect("user-1", first)
	registry.Connect("user-1", second)

	// The old connection's read loop exits late and disconnects; the newer
	// connection must survive.
	registry.Disconnect("user-1", first)
	assert.Same(t, Conn(second), registry.Get("user-1"))

	registry.Disconnect("user-1", second)
	assert.Nil(t, registry.Get("user-1"))
	assert.Equal(t, 0, registry.Count())
}

func TestRegistrySendToOfflineUser(t *testing.T) {
	registry := NewRegistry()
	assert.False(t, registry.Send("ghost", OutEnvelope{Event: "ping"}))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i%10)
			conn := &fakeConn{}
			registry.Connect(userID, conn)
			registry.Send(userID, OutEnvelope{Event: "ping"})
			registry.Disconnect(userID, conn)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Count())
}
