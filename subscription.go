package nostr

import (
	"context"
	"fmt"
	"sync"
)

// Subscription is a single REQ on a single relay: a live, possibly
// infinite sequence of events matching its filters. Stored events come
// first, then EndOfStoredEvents is signalled, then live pushes follow.
type Subscription struct {
	id   string
	conn *Connection

	Relay   *Relay
	Filters Filters

	// Events delivers matching events in relay order. It is closed when
	// the underlying connection goes away.
	Events chan *Event

	// EndOfStoredEvents is closed when the relay signals EOSE.
	EndOfStoredEvents chan struct{}

	done      chan struct{}
	stopOnce  sync.Once
	eoseOnce  sync.Once
	closeOnce sync.Once
}

// ID returns the subscription id sent to the relay.
func (sub *Subscription) ID() string {
	return sub.id
}

// Fire sends the REQ to the relay. When ctx is cancelled the subscription
// is closed.
func (sub *Subscription) Fire(ctx context.Context) error {
	req := ReqEnvelope{SubscriptionID: sub.id, Filters: sub.Filters}
	if err := sub.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send REQ to '%s': %w", sub.Relay.URL, err)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsub()
		case <-sub.done:
		}
	}()

	return nil
}

// Unsub sends CLOSE to the relay and stops delivery. It is idempotent and
// releases anyone blocked on a pending dispatch.
func (sub *Subscription) Unsub() {
	sub.stopOnce.Do(func() {
		sub.conn.WriteJSON(CloseEnvelope(sub.id))
		close(sub.done)
		sub.Relay.subscriptions.Delete(sub.id)
	})
}

// dispatch hands an event to the consumer. Only called from the relay's
// message loop.
func (sub *Subscription) dispatch(evt *Event) {
	select {
	case sub.Events <- evt:
	case <-sub.done:
	}
}

// eose signals that the relay has exhausted its stored events.
func (sub *Subscription) eose() {
	sub.eoseOnce.Do(func() {
		close(sub.EndOfStoredEvents)
	})
}

// dispose closes the Events channel. Only called once the relay's message
// loop has exited, so no dispatch can be in flight.
func (sub *Subscription) dispose() {
	sub.closeOnce.Do(func() {
		close(sub.Events)
	})
}
