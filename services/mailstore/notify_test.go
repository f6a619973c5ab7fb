package mailstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubWakesMatchingWaiter(t *testing.T) {
	hub := newChangeHub()

	done := make(chan []string, 1)
	go func() {
		changed, err := hub.wait(context.Background(), 1, []string{"1", "4"}, 5*time.Second)
		require.NoError(t, err)
		done <- changed
	}()

	// Give the waiter a moment to register.
	time.Sleep(20 * time.Millisecond)
	hub.PublishChange(1, "1")

	select {
	case changed := <-done:
		assert.Equal(t, []string{"1"}, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestHubIgnoresOtherPrincipalsAndCollections(t *testing.T) {
	hub := newChangeHub()

	done := make(chan []string, 1)
	go func() {
		changed, err := hub.wait(context.Background(), 1, []string{"1"}, 150*time.Millisecond)
		require.NoError(t, err)
		done <- changed
	}()

	time.Sleep(20 * time.Millisecond)
	hub.PublishChange(2, "1") // different principal
	hub.PublishChange(1, "9") // unwatched collection

	changed := <-done
	assert.Nil(t, changed, "timeout expected, no change delivered")
}

func TestHubTimeout(t *testing.T) {
	hub := newChangeHub()
	start := time.Now()
	changed, err := hub.wait(context.Background(), 7, []string{"1"}, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, changed)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestHubCancellation(t *testing.T) {
	hub := newChangeHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := hub.wait(ctx, 7, []string{"1"}, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHubUnsubscribeCleansUp(t *testing.T) {
	hub := newChangeHub()
	_, err := hub.wait(context.Background(), 3, []string{"1"}, time.Millisecond)
	require.NoError(t, err)
	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Empty(t, hub.subs)
}
