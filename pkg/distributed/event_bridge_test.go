package distributed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventBridge_ForwardsEventsFromOtherInstances(t *testing.T) {
	client := setupRedisClient(t)
	log := zap.NewNop().Sugar()

	sender := NewEventBridge(client, log)
	receiver := NewEventBridge(client, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 4)
	forward := func(e Event) { received <- e }

	go receiver.Run(ctx, forward)
	go sender.Run(ctx, forward)

	// 구독이 준비될 때까지 대기
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, sender.PublishContext(ctx, "game_rated", map[string]int{"gameId": 42}))

	select {
	case e := <-received:
		assert.Equal(t, "game_rated", e.Type)
		var payload map[string]int
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		assert.Equal(t, 42, payload["gameId"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not forwarded")
	}

	// the sender must not see its own event
	select {
	case e := <-received:
		t.Fatalf("unexpected second delivery: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}
