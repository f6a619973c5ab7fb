package mailstore

import (
	"context"
	"sync"
	"time"
)

// changeHub fans mail-arrival notifications out to long-poll waiters. The
// RabbitMQ listener and in-process mutations both publish into it.
type changeHub struct {
	mu   sync.Mutex
	subs map[int64]map[*subscriber]struct{}
}

type subscriber struct {
	collections map[string]struct{}
	ch          chan string
}

func newChangeHub() *changeHub {
	return &changeHub{subs: make(map[int64]map[*subscriber]struct{})}
}

// PublishChange wakes every waiter of the principal that watches the
// collection. Slow waiters are skipped rather than blocked on; a Ping
// waiter that missed a send will catch the next one.
func (h *changeHub) PublishChange(principalID int64, collectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[principalID] {
		if _, ok := sub.collections[collectionID]; !ok {
			continue
		}
		select {
		case sub.ch <- collectionID:
		default:
		}
	}
}

func (h *changeHub) subscribe(principalID int64, collectionIDs []string) *subscriber {
	sub := &subscriber{
		collections: make(map[string]struct{}, len(collectionIDs)),
		ch:          make(chan string, len(collectionIDs)),
	}
	for _, id := range collectionIDs {
		sub.collections[id] = struct{}{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[principalID] == nil {
		h.subs[principalID] = make(map[*subscriber]struct{})
	}
	h.subs[principalID][sub] = struct{}{}
	return sub
}

func (h *changeHub) unsubscribe(principalID int64, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[principalID], sub)
	if len(h.subs[principalID]) == 0 {
		delete(h.subs, principalID)
	}
}

// wait blocks until a watched collection changes, the timeout elapses
// (nil, nil) or ctx is canceled.
func (h *changeHub) wait(ctx context.Context, principalID int64, collectionIDs []string, timeout time.Duration) ([]string, error) {
	sub := h.subscribe(principalID, collectionIDs)
	defer h.unsubscribe(principalID, sub)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case first := <-sub.ch:
		changed := map[string]struct{}{first: {}}
		// Drain anything that arrived in the same burst.
		for {
			select {
			case id := <-sub.ch:
				changed[id] = struct{}{}
			default:
				out := make([]string, 0, len(changed))
				for _, id := range collectionIDs {
					if _, ok := changed[id]; ok {
						out = append(out, id)
					}
				}
				return out, nil
			}
		}
	}
}
