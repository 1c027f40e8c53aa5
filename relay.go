package nostr

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Status is the lifecycle state of a relay session.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusDisconnecting
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Endpoint identifies a configured relay. Immutable after load.
type Endpoint struct {
	Name string
	URL  string
}

// PublishError is a relay's negative acknowledgment of a published event.
type PublishError struct {
	Relay  string
	Reason string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("event rejected by %s: %s", e.Relay, e.Reason)
}

// Relay owns one persistent connection to one relay endpoint. A Relay may
// be connected, closed and connected again; the endpoint identity is
// preserved across reconnects.
type Relay struct {
	Endpoint

	Connection *Connection

	// Notices receives protocol-level informational messages. Recreated
	// on every Connect, closed when the connection goes away.
	Notices chan string

	// ConnectionError receives the read error that terminated the
	// connection, at most one per Connect.
	ConnectionError chan error

	subscriptions *xsync.MapOf[string, *Subscription]
	okCallbacks   *xsync.MapOf[string, func(ok bool, reason string)]
	state         atomic.Int32
}

// NewRelay creates a disconnected session for the given endpoint.
func NewRelay(endpoint Endpoint) *Relay {
	return &Relay{
		Endpoint:      endpoint,
		subscriptions: xsync.NewMapOf[string, *Subscription](),
		okCallbacks:   xsync.NewMapOf[string, func(ok bool, reason string)](),
	}
}

// RelayConnect is a convenience that creates a session for url and
// connects it.
func RelayConnect(ctx context.Context, url string) (*Relay, error) {
	r := NewRelay(Endpoint{URL: url})
	err := r.Connect(ctx)
	return r, err
}

func (r *Relay) String() string {
	return r.URL
}

// Status returns the current lifecycle state.
func (r *Relay) Status() Status {
	return Status(r.state.Load())
}

// Connect tries to establish a websocket connection to r.URL. If the
// context expires before the handshake completes an error is returned and
// the session is left disconnected. Once connected, context expiration has
// no effect: call r.Close to close the connection.
func (r *Relay) Connect(ctx context.Context) error {
	if r.URL == "" {
		return fmt.Errorf("invalid relay URL '%s'", r.URL)
	}

	r.state.Store(int32(StatusConnecting))

	if _, ok := ctx.Deadline(); !ok {
		// if no timeout is set, force it to 7 seconds
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 7*time.Second)
		defer cancel()
	}

	conn, err := NewConnection(ctx, NormalizeURL(r.URL), nil)
	if err != nil {
		r.state.Store(int32(StatusDisconnected))
		return fmt.Errorf("error opening websocket to '%s': %w", r.URL, err)
	}

	r.Connection = conn
	r.Notices = make(chan string, 16)
	r.ConnectionError = make(chan error, 1)
	r.state.Store(int32(StatusConnected))

	go r.messageLoop(conn, r.Notices, r.ConnectionError)

	return nil
}

func (r *Relay) messageLoop(conn *Connection, notices chan string, connErr chan error) {
	defer func() {
		r.state.Store(int32(StatusDisconnected))
		r.subscriptions.Range(func(id string, sub *Subscription) bool {
			sub.Unsub()
			sub.dispose()
			return true
		})
		r.subscriptions.Clear()
		close(notices)
	}()

	for {
		message, err := conn.ReadMessage()
		if err != nil {
			select {
			case connErr <- err:
			default:
			}
			return
		}

		DebugLogger.Printf("{%s} received %s\n", r.URL, message)

		switch env := ParseMessage(message).(type) {
		case *NoticeEnvelope:
			select {
			case notices <- string(*env):
			default:
				InfoLogger.Printf("{%s} dropped notice: %s\n", r.URL, string(*env))
			}
		case *EventEnvelope:
			if env.SubscriptionID == nil {
				continue
			}
			sub, ok := r.subscriptions.Load(*env.SubscriptionID)
			if !ok {
				continue
			}

			// check the signature of all received events, ignore invalid
			if ok, err := env.Event.CheckSignature(); !ok {
				errmsg := ""
				if err != nil {
					errmsg = err.Error()
				}
				InfoLogger.Printf("{%s} bad signature on %s: %s\n", r.URL, env.Event.ID, errmsg)
				continue
			}

			// check if the event matches the desired filter, ignore otherwise
			if !sub.Filters.Match(&env.Event) {
				continue
			}

			sub.dispatch(&env.Event)
		case *EOSEEnvelope:
			if sub, ok := r.subscriptions.Load(string(*env)); ok {
				sub.eose()
			}
		case *OKEnvelope:
			if okCallback, ok := r.okCallbacks.Load(env.EventID); ok {
				okCallback(env.OK, env.Reason)
			}
		case *ClosedEnvelope:
			if sub, ok := r.subscriptions.Load(env.SubscriptionID); ok {
				InfoLogger.Printf("{%s} subscription %s closed by relay: %s\n", r.URL, env.SubscriptionID, env.Reason)
				sub.Unsub()
			}
		}
	}
}

// Close terminates the connection. It is idempotent and never fails; a
// session that is already disconnected is left alone.
func (r *Relay) Close() error {
	if Status(r.state.Load()) == StatusDisconnected {
		return nil
	}

	r.state.Store(int32(StatusDisconnecting))
	if r.Connection != nil {
		r.Connection.Close()
	}
	return nil
}

// Publish sends the signed event and waits for the relay's OK. A negative
// acknowledgment is returned as a *PublishError carrying the relay's
// reason; it concerns this relay and this event only.
func (r *Relay) Publish(ctx context.Context, event Event) error {
	if r.Status() != StatusConnected {
		return fmt.Errorf("relay '%s' is not connected", r.URL)
	}

	if _, ok := ctx.Deadline(); !ok {
		// if no timeout is set, force it to 4 seconds
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 4*time.Second)
		defer cancel()
	}

	confirm := make(chan error, 1)
	r.okCallbacks.Store(event.ID, func(ok bool, reason string) {
		if ok {
			confirm <- nil
		} else {
			confirm <- &PublishError{Relay: r.URL, Reason: reason}
		}
	})
	defer r.okCallbacks.Delete(event.ID)

	if err := r.Connection.WriteJSON(EventEnvelope{Event: event}); err != nil {
		return fmt.Errorf("failed to send EVENT to '%s': %w", r.URL, err)
	}

	select {
	case err := <-confirm:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish to '%s' not acknowledged: %w", r.URL, ctx.Err())
	}
}

// Subscribe opens a subscription with the given filters. Events start
// flowing on the returned Subscription immediately; the subscription lives
// until ctx is cancelled, Unsub is called or the connection drops.
func (r *Relay) Subscribe(ctx context.Context, filters Filters) (*Subscription, error) {
	if r.Status() != StatusConnected {
		return nil, fmt.Errorf("relay '%s' is not connected", r.URL)
	}

	sub := &Subscription{
		id:                uuid.NewString(),
		conn:              r.Connection,
		Relay:             r,
		Filters:           filters,
		Events:            make(chan *Event),
		EndOfStoredEvents: make(chan struct{}),
		done:              make(chan struct{}),
	}

	r.subscriptions.Store(sub.id, sub)

	if err := sub.Fire(ctx); err != nil {
		r.subscriptions.Delete(sub.id)
		return nil, err
	}

	return sub, nil
}

// QuerySync opens a subscription, collects events until the end-of-stored-
// events marker and closes it again. Used for one-shot lookups.
func (r *Relay) QuerySync(ctx context.Context, filter Filter) []*Event {
	if _, ok := ctx.Deadline(); !ok {
		// if no timeout is set, force it to 4 seconds
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 4*time.Second)
		defer cancel()
	}

	sub, err := r.Subscribe(ctx, Filters{filter})
	if err != nil {
		return nil
	}
	defer sub.Unsub()

	var events []*Event
	for {
		select {
		case evt, more := <-sub.Events:
			if !more {
				return events
			}
			events = append(events, evt)
		case <-sub.EndOfStoredEvents:
			return events
		case <-ctx.Done():
			return events
		}
	}
}
