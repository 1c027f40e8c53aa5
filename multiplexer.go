package nostr

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// IncomingEvent is an event along with the relay it arrived from.
type IncomingEvent struct {
	*Event
	Relay *Relay
}

// Multiplexer merges any number of independently-progressing event
// streams into a single sequence ordered by arrival. There is no fixed
// priority between sources: a source that never produces cannot block the
// ones that do, and no ordering across sources is guaranteed beyond
// "whichever arrives first is yielded first".
//
// With Unique set (the default via NewMultiplexer), the first arrival of
// each event id wins and later duplicates from other sources are dropped;
// a dropped duplicate still advances its source normally.
type Multiplexer struct {
	Unique bool

	seen *xsync.MapOf[string, struct{}]
}

func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		Unique: true,
		seen:   xsync.NewMapOf[string, struct{}](),
	}
}

// Merge fans the given sources into one channel. The merged channel is
// closed once every source is exhausted, even if they finish at different
// times. Cancelling ctx releases all pending reads; nothing is left
// blocked behind a consumer that stopped early.
func (m *Multiplexer) Merge(ctx context.Context, sources ...<-chan IncomingEvent) <-chan IncomingEvent {
	merged := make(chan IncomingEvent)

	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, source := range sources {
		go func(source <-chan IncomingEvent) {
			defer wg.Done()
			for {
				select {
				case ie, more := <-source:
					if !more {
						// source exhausted, do not re-arm it
						return
					}

					if m.Unique && ie.Event != nil {
						if _, seen := m.seen.LoadOrStore(ie.ID, struct{}{}); seen {
							continue
						}
					}

					select {
					case merged <- ie:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(source)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged
}

// SubscriptionSource adapts a relay subscription into a stream suitable
// for Merge. With untilEOSE set the stream ends at the end-of-stored-
// events marker and the subscription is closed; otherwise live pushes keep
// flowing until the subscription dies.
func SubscriptionSource(ctx context.Context, sub *Subscription, untilEOSE bool) <-chan IncomingEvent {
	out := make(chan IncomingEvent)

	go func() {
		defer close(out)
		defer sub.Unsub()

		eose := sub.EndOfStoredEvents
		for {
			select {
			case evt, more := <-sub.Events:
				if !more {
					return
				}
				select {
				case out <- IncomingEvent{Event: evt, Relay: sub.Relay}:
				case <-ctx.Done():
					return
				}
			case <-eose:
				if untilEOSE {
					return
				}
				// EndOfStoredEvents is closed and would fire forever;
				// stop selecting on it
				eose = nil
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
