package nostr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintwatch/mintwatch/nip19"
)

func TestSetIdentityAcceptsHexAndNsec(t *testing.T) {
	sk := GeneratePrivateKey()
	expected, err := GetPublicKey(sk)
	require.NoError(t, err)

	c := NewClient(nil)
	pk, err := c.SetIdentity(sk)
	require.NoError(t, err)
	assert.Equal(t, expected, pk)

	nsec, err := nip19.EncodePrivateKey(sk)
	require.NoError(t, err)

	pk, err = c.SetIdentity(nsec)
	require.NoError(t, err)
	assert.Equal(t, expected, pk)
	assert.Equal(t, expected, c.PublicKey())
}

func TestPublishRequiresIdentity(t *testing.T) {
	c := NewClient(nil)

	_, _, err := c.PublishText(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestPublishThreadRejectsShortThreads(t *testing.T) {
	c := NewClient(nil)
	_, err := c.SetIdentity(GeneratePrivateKey())
	require.NoError(t, err)

	_, err = c.PublishThread(context.Background(), nil)
	assert.ErrorIs(t, err, ErrThreadTooShort)

	_, err = c.PublishThread(context.Background(), []string{"lonely"})
	assert.ErrorIs(t, err, ErrThreadTooShort)
}

func TestPublishThreadChainsReferences(t *testing.T) {
	// no sessions: publishing succeeds locally and the chain of ids is
	// still built, which is what this test is about
	c := NewClient(nil)
	pk, err := c.SetIdentity(GeneratePrivateKey())
	require.NoError(t, err)

	posts, err := c.PublishThread(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, posts, 3)

	root := posts[0]
	assert.Empty(t, root.RootReference)
	assert.Empty(t, root.Reference)
	assert.Equal(t, pk, root.Author)

	assert.Equal(t, root.ID, posts[1].RootReference)
	assert.Equal(t, root.ID, posts[1].Reference)

	assert.Equal(t, posts[1].ID, posts[2].Reference)
	assert.Empty(t, posts[2].RootReference)

	// every post gets its own identity
	assert.NotEqual(t, posts[0].ID, posts[1].ID)
	assert.NotEqual(t, posts[1].ID, posts[2].ID)
}

func TestPublishReplyCarriesRootOver(t *testing.T) {
	c := NewClient(nil)
	_, err := c.SetIdentity(GeneratePrivateKey())
	require.NoError(t, err)

	parent := Post{
		ID:            "beef",
		Author:        "cafe",
		RootReference: "f00d",
		Reference:     "dead",
	}

	reply, _, err := c.PublishReply(context.Background(), "agreed", parent)
	require.NoError(t, err)

	assert.Equal(t, "f00d", reply.RootReference)
	assert.Equal(t, "beef", reply.Reference)
	assert.Equal(t, "cafe", reply.MentionTo)
}

func TestConnectAllIsolatesFailures(t *testing.T) {
	server := newTestRelayServer(t)

	c := NewClient([]Endpoint{
		{Name: "good", URL: server.url()},
		{Name: "bad", URL: "ws://127.0.0.1:1"},
	})
	defer c.DisconnectAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcomes := c.ConnectAll(ctx)
	require.Len(t, outcomes, 2)

	failures := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failures++
			assert.Equal(t, "bad", outcome.Name)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Len(t, c.Sessions(), 1)
}

func TestReconnectAllPreservesSessions(t *testing.T) {
	server := newTestRelayServer(t)

	noticed := make(chan string, 64)
	c := NewClient([]Endpoint{{Name: "main", URL: server.url()}},
		WithNoticeHandler(func(relay, message string) {
			select {
			case noticed <- message:
			default:
			}
		}))
	defer c.DisconnectAll()

	for _, outcome := range c.ConnectAll(context.Background()) {
		require.NoError(t, outcome.Err)
	}

	// tear down and re-establish repeatedly; the session set must come
	// back intact every time
	for i := 0; i < 10; i++ {
		outcomes := c.ReconnectAll(context.Background())
		require.Len(t, outcomes, 1)
		require.NoError(t, outcomes[0].Err)
		assert.Equal(t, "main", outcomes[0].Name)
	}

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, StatusConnected, sessions[0].Status())

	// notices arriving on the fresh connection must still reach the
	// handler, proving the watcher follows the reconnect
	server.setNotice("back again")
	outcomes := c.ReconnectAll(context.Background())
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-noticed:
			if msg == "back again" {
				return
			}
			// teardown chatter from earlier connections, keep waiting
		case <-deadline:
			t.Fatal("notice after reconnect never arrived")
		}
	}
}

func TestReconnectAllDropsSessionsThatFailToReturn(t *testing.T) {
	server := newTestRelayServer(t)

	c := NewClient([]Endpoint{{Name: "gone", URL: server.url()}})

	for _, outcome := range c.ConnectAll(context.Background()) {
		require.NoError(t, outcome.Err)
	}

	server.server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcomes := c.ReconnectAll(ctx)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, "gone", outcomes[0].Name)
	assert.Empty(t, c.Sessions())
}

func TestFetchAllDeduplicatesAcrossSessions(t *testing.T) {
	sk := GeneratePrivateKey()
	shared := signedEvent(t, sk, KindTextNote, nil, "seen everywhere", 50)
	onlyA := signedEvent(t, sk, KindTextNote, nil, "only on a", 60)
	onlyB := signedEvent(t, sk, KindTextNote, nil, "only on b", 70)

	serverA := newTestRelayServer(t, shared, onlyA)
	serverB := newTestRelayServer(t, shared, onlyB)

	c := NewClient([]Endpoint{
		{Name: "a", URL: serverA.url()},
		{Name: "b", URL: serverB.url()},
	})
	defer c.DisconnectAll()

	for _, outcome := range c.ConnectAll(context.Background()) {
		require.NoError(t, outcome.Err)
	}

	events := c.FetchAll(context.Background(), Filter{Kinds: []int{KindTextNote}})
	assert.Len(t, events, 3, "the shared event must be delivered once")

	ids := make(map[string]bool)
	for _, evt := range events {
		ids[evt.ID] = true
	}
	assert.True(t, ids[shared.ID])
	assert.True(t, ids[onlyA.ID])
	assert.True(t, ids[onlyB.ID])
}

func TestProfilePrefersLatestEvents(t *testing.T) {
	sk := GeneratePrivateKey()
	pk, err := GetPublicKey(sk)
	require.NoError(t, err)

	followerSK := GeneratePrivateKey()
	followerPK, err := GetPublicKey(followerSK)
	require.NoError(t, err)

	oldMeta := signedEvent(t, sk, KindProfileMetadata, nil,
		`{"name":"old name"}`, 100)
	newMeta := signedEvent(t, sk, KindProfileMetadata, nil,
		`{"name":"new name","about":"still me"}`, 200)

	contacts := signedEvent(t, sk, KindContactList,
		Tags{{"p", followerPK}},
		`{"wss://relay.example.com/":{"read":true,"write":false}}`, 150)

	followerContacts := signedEvent(t, followerSK, KindContactList,
		Tags{{"p", pk}}, "{}", 160)

	serverA := newTestRelayServer(t, oldMeta, followerContacts)
	serverB := newTestRelayServer(t, newMeta, contacts)

	c := NewClient([]Endpoint{
		{Name: "a", URL: serverA.url()},
		{Name: "b", URL: serverB.url()},
	})
	defer c.DisconnectAll()

	for _, outcome := range c.ConnectAll(context.Background()) {
		require.NoError(t, outcome.Err)
	}

	profile, err := c.Profile(context.Background(), pk)
	require.NoError(t, err)

	require.NotNil(t, profile.Metadata)
	assert.Equal(t, "new name", profile.Metadata.Name)
	assert.Equal(t, "still me", profile.Metadata.About)

	assert.Equal(t, []string{followerPK}, profile.Followees)
	assert.Equal(t, []string{followerPK}, profile.Followers)
	assert.Equal(t, RelayPolicy{Read: true}, profile.Relays["wss://relay.example.com/"])
}

func TestProfileRejectsGarbageKeys(t *testing.T) {
	c := NewClient(nil)

	_, err := c.Profile(context.Background(), "not a key")
	assert.Error(t, err)
}
