package nostr

import (
	"encoding/json"

	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"
)

// Envelope is one of the JSON array messages exchanged with a relay.
type Envelope interface {
	Label() string
}

// ParseMessage turns a raw relay message into its envelope type.
// Malformed or unknown messages yield nil; the protocol treats those as
// noise, not errors.
func ParseMessage(message []byte) Envelope {
	r := gjson.ParseBytes(message)
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	if len(arr) < 2 {
		return nil
	}

	switch arr[0].Str {
	case "EVENT":
		if len(arr) < 3 {
			return nil
		}
		env := &EventEnvelope{}
		subID := arr[1].Str
		env.SubscriptionID = &subID
		if err := json.Unmarshal([]byte(arr[2].Raw), &env.Event); err != nil {
			return nil
		}
		return env
	case "NOTICE":
		x := NoticeEnvelope(arr[1].Str)
		return &x
	case "EOSE":
		x := EOSEEnvelope(arr[1].Str)
		return &x
	case "OK":
		if len(arr) < 3 {
			return nil
		}
		env := &OKEnvelope{EventID: arr[1].Str, OK: arr[2].Bool()}
		if len(arr) >= 4 {
			env.Reason = arr[3].Str
		}
		return env
	case "CLOSED":
		if len(arr) < 3 {
			return nil
		}
		return &ClosedEnvelope{SubscriptionID: arr[1].Str, Reason: arr[2].Str}
	}

	return nil
}

type EventEnvelope struct {
	SubscriptionID *string
	Event
}

func (EventEnvelope) Label() string { return "EVENT" }

func (v EventEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["EVENT",`)
	if v.SubscriptionID != nil {
		w.String(*v.SubscriptionID)
		w.RawString(`,`)
	}
	v.Event.MarshalEasyJSON(&w)
	w.RawString(`]`)
	return w.BuildBytes()
}

type ReqEnvelope struct {
	SubscriptionID string
	Filters
}

func (ReqEnvelope) Label() string { return "REQ" }

func (v ReqEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["REQ",`)
	w.String(v.SubscriptionID)
	for _, filter := range v.Filters {
		w.RawString(`,`)
		w.Raw(json.Marshal(filter))
	}
	w.RawString(`]`)
	return w.BuildBytes()
}

type CloseEnvelope string

func (CloseEnvelope) Label() string { return "CLOSE" }

func (v CloseEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["CLOSE",`)
	w.String(string(v))
	w.RawString(`]`)
	return w.BuildBytes()
}

type NoticeEnvelope string

func (NoticeEnvelope) Label() string { return "NOTICE" }

func (v NoticeEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["NOTICE",`)
	w.String(string(v))
	w.RawString(`]`)
	return w.BuildBytes()
}

type EOSEEnvelope string

func (EOSEEnvelope) Label() string { return "EOSE" }

func (v EOSEEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["EOSE",`)
	w.String(string(v))
	w.RawString(`]`)
	return w.BuildBytes()
}

type OKEnvelope struct {
	EventID string
	OK      bool
	Reason  string
}

func (OKEnvelope) Label() string { return "OK" }

func (v OKEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["OK",`)
	w.String(v.EventID)
	w.RawString(`,`)
	w.Bool(v.OK)
	w.RawString(`,`)
	w.String(v.Reason)
	w.RawString(`]`)
	return w.BuildBytes()
}

// ClosedEnvelope is sent by relays that terminate a subscription from
// their side.
type ClosedEnvelope struct {
	SubscriptionID string
	Reason         string
}

func (ClosedEnvelope) Label() string { return "CLOSED" }
