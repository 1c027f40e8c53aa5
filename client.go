package nostr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mintwatch/mintwatch/nip19"
)

var (
	// ErrThreadTooShort is returned when a thread of fewer than two posts
	// is requested.
	ErrThreadTooShort = errors.New("a thread needs at least 2 posts")

	// ErrNoIdentity is returned when an operation requires a signing key
	// and none was set.
	ErrNoIdentity = errors.New("no identity set, call SetIdentity first")
)

// Outcome is the per-endpoint result of a best-effort batch operation.
type Outcome struct {
	Endpoint
	Err error
}

// NoticeFunc receives relay notices and per-relay failures. It must not
// block.
type NoticeFunc func(relay string, message string)

// Client drives a set of relay sessions as best-effort batches: it holds
// the configured endpoints and the local identity, and is the sole mutator
// of session membership.
type Client struct {
	endpoints []Endpoint

	mutex  sync.Mutex
	relays []*Relay

	secretKey string
	publicKey string

	onNotice NoticeFunc
}

type ClientOption func(*Client)

// WithNoticeHandler injects the observer that receives relay notices and
// connection errors. Without it they are discarded.
func WithNoticeHandler(fn NoticeFunc) ClientOption {
	return func(c *Client) { c.onNotice = fn }
}

func NewClient(endpoints []Endpoint, opts ...ClientOption) *Client {
	c := &Client{endpoints: endpoints}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIdentity sets the signing key, accepting raw hex or the bech32 nsec
// form, and returns the derived public key.
func (c *Client) SetIdentity(secretKey string) (string, error) {
	sk := nip19.TranslateKey(secretKey)
	pk, err := GetPublicKey(sk)
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}

	c.secretKey = sk
	c.publicKey = pk
	return pk, nil
}

// PublicKey returns the public half of the current identity, or "".
func (c *Client) PublicKey() string {
	return c.publicKey
}

// Sessions returns a snapshot of the active relay sessions.
func (c *Client) Sessions() []*Relay {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	relays := make([]*Relay, len(c.relays))
	copy(relays, c.relays)
	return relays
}

func (c *Client) notify(relay string, message string) {
	if c.onNotice != nil {
		c.onNotice(relay, message)
	}
}

// watch forwards notices and the terminating connection error of one
// connection to the notice handler. The channels are passed in rather
// than read off the relay because a reconnect replaces the relay's
// channel fields; each watcher is bound to exactly one connection and
// returns when its notices channel closes.
func (c *Client) watch(r *Relay, notices chan string, connErr chan error) {
	for {
		select {
		case msg, ok := <-notices:
			if !ok {
				return
			}
			c.notify(r.URL, msg)
		case err := <-connErr:
			c.notify(r.URL, fmt.Sprintf("connection error: %s", err))
		}
	}
}

// ConnectAll attempts to connect every configured endpoint independently
// and collects the successes into the active session set. One endpoint's
// failure never aborts the remaining attempts, and zero successes is not
// treated as fatal here; inspect the outcomes to decide.
func (c *Client) ConnectAll(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(c.endpoints))
	relays := make([]*Relay, len(c.endpoints))

	var wg sync.WaitGroup
	wg.Add(len(c.endpoints))
	for i, endpoint := range c.endpoints {
		go func(i int, endpoint Endpoint) {
			defer wg.Done()

			relay := NewRelay(endpoint)
			if err := relay.Connect(ctx); err != nil {
				outcomes[i] = Outcome{Endpoint: endpoint, Err: err}
				c.notify(endpoint.URL, fmt.Sprintf("connect failed: %s", err))
				return
			}

			outcomes[i] = Outcome{Endpoint: endpoint}
			relays[i] = relay
		}(i, endpoint)
	}
	wg.Wait()

	c.mutex.Lock()
	for _, relay := range relays {
		if relay != nil {
			c.relays = append(c.relays, relay)
			go c.watch(relay, relay.Notices, relay.ConnectionError)
		}
	}
	c.mutex.Unlock()

	return outcomes
}

// DisconnectAll closes every active session and empties the session set.
func (c *Client) DisconnectAll() []Outcome {
	c.mutex.Lock()
	relays := c.relays
	c.relays = nil
	c.mutex.Unlock()

	outcomes := make([]Outcome, len(relays))
	for i, relay := range relays {
		relay.Close()
		outcomes[i] = Outcome{Endpoint: relay.Endpoint}
	}
	return outcomes
}

// ReconnectAll tears down and re-establishes every active session,
// preserving endpoint identity. Sessions that fail to come back are
// dropped from the active set; their outcome carries the error.
func (c *Client) ReconnectAll(ctx context.Context) []Outcome {
	c.mutex.Lock()
	relays := c.relays
	c.relays = nil
	c.mutex.Unlock()

	outcomes := make([]Outcome, len(relays))
	kept := make([]*Relay, 0, len(relays))

	var wg sync.WaitGroup
	wg.Add(len(relays))
	var keptMutex sync.Mutex
	for i, relay := range relays {
		go func(i int, relay *Relay) {
			defer wg.Done()

			relay.Close()
			if err := relay.Connect(ctx); err != nil {
				outcomes[i] = Outcome{Endpoint: relay.Endpoint, Err: err}
				c.notify(relay.URL, fmt.Sprintf("reconnect failed: %s", err))
				return
			}

			outcomes[i] = Outcome{Endpoint: relay.Endpoint}
			keptMutex.Lock()
			kept = append(kept, relay)
			keptMutex.Unlock()
			go c.watch(relay, relay.Notices, relay.ConnectionError)
		}(i, relay)
	}
	wg.Wait()

	c.mutex.Lock()
	c.relays = append(c.relays, kept...)
	c.mutex.Unlock()

	return outcomes
}

// FetchAll runs the filter as a one-shot query against every active
// session and merges the answers through the multiplexer, deduplicated by
// event id.
func (c *Client) FetchAll(ctx context.Context, filter Filter) []*Event {
	if _, ok := ctx.Deadline(); !ok {
		// if no timeout is set, force it to 4 seconds
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 4*time.Second)
		defer cancel()
	}

	sources := make([]<-chan IncomingEvent, 0)
	for _, relay := range c.Sessions() {
		sub, err := relay.Subscribe(ctx, Filters{filter})
		if err != nil {
			c.notify(relay.URL, fmt.Sprintf("subscribe failed: %s", err))
			continue
		}
		sources = append(sources, SubscriptionSource(ctx, sub, true))
	}

	var events []*Event
	for ie := range NewMultiplexer().Merge(ctx, sources...) {
		events = append(events, ie.Event)
	}
	return events
}

// SubscribeAll opens a live subscription on every active session and
// merges them into a single deduplicated stream. The stream ends when ctx
// is cancelled or every session's subscription dies.
func (c *Client) SubscribeAll(ctx context.Context, filter Filter) <-chan IncomingEvent {
	sources := make([]<-chan IncomingEvent, 0)
	for _, relay := range c.Sessions() {
		sub, err := relay.Subscribe(ctx, Filters{filter})
		if err != nil {
			c.notify(relay.URL, fmt.Sprintf("subscribe failed: %s", err))
			continue
		}
		sources = append(sources, SubscriptionSource(ctx, sub, false))
	}

	return NewMultiplexer().Merge(ctx, sources...)
}

// publish signs a fresh event and broadcasts it to every active session.
// Per-relay failures go to the notice handler and the outcome set, never
// abort the batch.
func (c *Client) publish(ctx context.Context, kind int, tags Tags, content string) (*Post, []Outcome, error) {
	if c.secretKey == "" {
		return nil, nil, ErrNoIdentity
	}

	evt := &Event{
		CreatedAt: Now(),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	if err := evt.Sign(c.secretKey); err != nil {
		return nil, nil, err
	}

	relays := c.Sessions()
	outcomes := make([]Outcome, len(relays))

	var wg sync.WaitGroup
	wg.Add(len(relays))
	for i, relay := range relays {
		go func(i int, relay *Relay) {
			defer wg.Done()

			err := relay.Publish(ctx, *evt)
			outcomes[i] = Outcome{Endpoint: relay.Endpoint, Err: err}
			if err != nil {
				c.notify(relay.URL, fmt.Sprintf("publish of %s failed: %s", evt.ID, err))
			}
		}(i, relay)
	}
	wg.Wait()

	post := NewPost(evt)
	return &post, outcomes, nil
}

// PublishText signs and publishes a plain text note.
func (c *Client) PublishText(ctx context.Context, content string) (*Post, []Outcome, error) {
	return c.publish(ctx, KindTextNote, nil, content)
}

// PublishReply signs and publishes a reply to parent, carrying the thread
// root over when the parent has one.
func (c *Client) PublishReply(ctx context.Context, content string, parent Post) (*Post, []Outcome, error) {
	return c.publish(ctx, KindTextNote, replyTags(parent), content)
}

// PublishThread publishes contents as a chain: the first item is the
// thread root, the first follow-up references the root with both a root
// and a reply marker, and every later item carries only a reply marker
// pointing at the immediately preceding post. Each step completes across
// all relays before the next event is built, because each reply references
// the previous post's computed id.
func (c *Client) PublishThread(ctx context.Context, contents []string) ([]*Post, error) {
	if len(contents) < 2 {
		return nil, ErrThreadTooShort
	}

	root, _, err := c.PublishText(ctx, contents[0])
	if err != nil {
		return nil, err
	}

	posts := make([]*Post, 0, len(contents))
	posts = append(posts, root)

	prev := root
	for i, content := range contents[1:] {
		var tags Tags
		if i == 0 {
			tags = Tags{
				Tag{"e", root.ID, "", "root"},
				Tag{"e", prev.ID, "", "reply"},
				Tag{"p", prev.Author},
			}
		} else {
			tags = Tags{
				Tag{"e", prev.ID, "", "reply"},
				Tag{"p", prev.Author},
			}
		}

		post, _, err := c.publish(ctx, KindTextNote, tags, content)
		if err != nil {
			return posts, err
		}

		posts = append(posts, post)
		prev = post
	}

	return posts, nil
}
