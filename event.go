package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/mailru/easyjson/jwriter"
)

type Event struct {
	ID        string    `json:"id"`
	PubKey    string    `json:"pubkey"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      int       `json:"kind"`
	Tags      Tags      `json:"tags"`
	Content   string    `json:"content"`
	Sig       string    `json:"sig"`
}

// GetID serializes and returns the event ID as a string.
func (evt *Event) GetID() string {
	h := sha256.Sum256(evt.Serialize())
	return hex.EncodeToString(h[:])
}

// Serialize outputs a byte array that can be hashed/signed to
// identify/authenticate. The serialization is the JSON array
// [0,pubkey,created_at,kind,tags,content] as defined in NIP-01; any
// deviation breaks id compatibility with other implementations.
func (evt *Event) Serialize() []byte {
	dst := make([]byte, 0, 100+len(evt.Content))

	// the header portion is easy to serialize
	// [0,"pubkey",created_at,kind,
	dst = append(dst, []byte(
		fmt.Sprintf(
			"[0,\"%s\",%d,%d,",
			evt.PubKey,
			evt.CreatedAt,
			evt.Kind,
		))...)

	// tags
	dst = evt.Tags.marshalTo(dst)
	dst = append(dst, ',')

	// content needs to be escaped in general as it is user generated
	dst = escapeString(dst, evt.Content)
	dst = append(dst, ']')

	return dst
}

// CheckSignature recomputes the id from the event body and verifies the
// signature against it. If the signature is invalid bool will be false and
// err will be set.
func (evt Event) CheckSignature() (bool, error) {
	pk, err := hex.DecodeString(evt.PubKey)
	if err != nil {
		return false, fmt.Errorf("event pubkey '%s' is invalid hex: %w", evt.PubKey, err)
	}

	pubkey, err := schnorr.ParsePubKey(pk)
	if err != nil {
		return false, fmt.Errorf("event has invalid pubkey '%s': %w", evt.PubKey, err)
	}

	s, err := hex.DecodeString(evt.Sig)
	if err != nil {
		return false, fmt.Errorf("signature '%s' is invalid hex: %w", evt.Sig, err)
	}
	sig, err := schnorr.ParseSignature(s)
	if err != nil {
		return false, fmt.Errorf("failed to parse signature: %w", err)
	}

	hash := sha256.Sum256(evt.Serialize())
	return sig.Verify(hash[:], pubkey), nil
}

// Sign signs an event with the given secret key, setting the event's
// PubKey, ID and Sig fields.
func (evt *Event) Sign(secretKey string) error {
	s, err := hex.DecodeString(secretKey)
	if err != nil {
		return fmt.Errorf("Sign called with invalid secret key '%s': %w", secretKey, err)
	}

	if evt.Tags == nil {
		evt.Tags = make(Tags, 0)
	}

	sk, pk := btcec.PrivKeyFromBytes(s)
	evt.PubKey = hex.EncodeToString(schnorr.SerializePubKey(pk))

	h := sha256.Sum256(evt.Serialize())
	sig, err := schnorr.Sign(sk, h[:])
	if err != nil {
		return err
	}

	evt.ID = hex.EncodeToString(h[:])
	evt.Sig = hex.EncodeToString(sig.Serialize())

	return nil
}

// MarshalEasyJSON writes the event in NIP-01 field order.
func (evt Event) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.String(evt.ID)
	w.RawString(`,"pubkey":`)
	w.String(evt.PubKey)
	w.RawString(`,"created_at":`)
	w.Int64(int64(evt.CreatedAt))
	w.RawString(`,"kind":`)
	w.Int(evt.Kind)
	w.RawString(`,"tags":`)
	w.Raw(evt.Tags.marshalTo(nil), nil)
	w.RawString(`,"content":`)
	w.String(evt.Content)
	w.RawString(`,"sig":`)
	w.String(evt.Sig)
	w.RawString(`}`)
}

func (evt Event) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	evt.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

func (evt Event) String() string {
	j, _ := evt.MarshalJSON()
	return string(j)
}
