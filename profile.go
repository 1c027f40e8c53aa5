package nostr

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"github.com/mintwatch/mintwatch/nip19"
)

var metadataJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ProfileMetadata is the payload of a kind-0 event.
type ProfileMetadata struct {
	Name    string `json:"name"`
	About   string `json:"about"`
	Picture string `json:"picture"`
	NIP05   string `json:"nip05"`
}

// RelayPolicy is one entry of the relay preferences carried in a
// contact-list event's content.
type RelayPolicy struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// Profile is the aggregated view of a public key over all active
// sessions. It is rebuilt on every query, never cached.
type Profile struct {
	PubKey string

	// Metadata is taken from the most recent kind-0 event, or nil when
	// none was found or its content did not parse.
	Metadata *ProfileMetadata

	// Relays and Followees come from the most recent contact-list event.
	Relays    map[string]RelayPolicy
	Followees []string

	// Followers are the authors of contact lists referencing this key.
	Followers []string
}

// ParseMetadata decodes a kind-0 event's content.
func ParseMetadata(evt *Event) (*ProfileMetadata, error) {
	if evt.Kind != KindProfileMetadata {
		return nil, fmt.Errorf("event %s is kind %d, not %d", evt.ID, evt.Kind, KindProfileMetadata)
	}

	var meta ProfileMetadata
	if err := metadataJSON.UnmarshalFromString(evt.Content, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata from event %s: %w", evt.ID, err)
	}

	return &meta, nil
}

// latestEvent picks the event with the numerically greatest created_at.
func latestEvent(events []*Event) *Event {
	var latest *Event
	for _, evt := range events {
		if latest == nil || evt.CreatedAt > latest.CreatedAt {
			latest = evt
		}
	}
	return latest
}

// Profile assembles the profile view for a public key (hex or npub) from
// three one-shot queries across all active sessions: the latest metadata,
// the latest contact list and the reverse contact-list lookup. Metadata
// whose content fails to parse is treated as absent, not as an error.
func (c *Client) Profile(ctx context.Context, publicKey string) (*Profile, error) {
	pk := nip19.TranslateKey(publicKey)
	if !IsValidPublicKey(pk) {
		return nil, fmt.Errorf("invalid public key '%s'", publicKey)
	}

	profile := &Profile{PubKey: pk}

	if evt := latestEvent(c.FetchAll(ctx, Filter{
		Authors: []string{pk},
		Kinds:   []int{KindProfileMetadata},
	})); evt != nil {
		meta, err := ParseMetadata(evt)
		if err != nil {
			// malformed content means "no metadata", not a failure
			DebugLogger.Printf("skipping metadata of %s: %s\n", pk, err)
		} else {
			profile.Metadata = meta
		}
	}

	if evt := latestEvent(c.FetchAll(ctx, Filter{
		Authors: []string{pk},
		Kinds:   []int{KindContactList},
	})); evt != nil {
		for _, tag := range evt.Tags {
			if len(tag) >= 2 && tag[0] == "p" {
				profile.Followees = append(profile.Followees, tag[1])
			}
		}

		var relays map[string]RelayPolicy
		if err := metadataJSON.UnmarshalFromString(evt.Content, &relays); err != nil {
			DebugLogger.Printf("skipping relay preferences of %s: %s\n", pk, err)
		} else {
			profile.Relays = relays
		}
	}

	followers := c.FetchAll(ctx, Filter{
		Kinds: []int{KindContactList},
		TagP:  []string{pk},
	})
	profile.Followers = lo.Uniq(lo.Map(followers, func(evt *Event, _ int) string {
		return evt.PubKey
	}))

	return profile, nil
}
