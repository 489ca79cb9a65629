package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/capitalize-ai/omnilead/internal/model"
)

var (
	// ErrNoTextMessage means the payload parsed but held no text message.
	ErrNoTextMessage = errors.New("no text message in payload")

	// ErrMalformedPayload means the body is not valid JSON.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnsupportedChannel is returned for channels without a normalizer.
	ErrUnsupportedChannel = errors.New("unsupported channel")
)

const unknownSender = "Unknown"

// Normalize extracts the first text message of a delivery.
func Normalize(channel model.Channel, body []byte) (*model.InboundMessage, error) {
	switch channel {
	case model.ChannelWhatsApp:
		return normalizeWhatsApp(body)
	case model.ChannelFacebook, model.ChannelInstagram:
		return normalizeMessenger(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannel, channel)
	}
}

// --- WhatsApp Cloud API payload ---

type waPayload struct {
	Object string    `json:"object"`
	Entry  []waEntry `json:"entry"`
}

type waEntry struct {
	ID      string     `json:"id"`
	Changes []waChange `json:"changes"`
}

type waChange struct {
	Value waValue `json:"value"`
	Field string  `json:"field"`
}

type waValue struct {
	MessagingProduct string      `json:"messaging_product"`
	Contacts         []waContact `json:"contacts"`
	Messages         []waMessage `json:"messages"`
}

type waContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type waMessage struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Timestamp flexTimestamp `json:"timestamp"`
	Text      *waText       `json:"text,omitempty"`
}

type waText struct {
	Body string `json:"body"`
}

func normalizeWhatsApp(body []byte) (*model.InboundMessage, error) {
	var payload waPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return nil, ErrNoTextMessage
	}

	value := payload.Entry[0].Changes[0].Value
	for _, msg := range value.Messages {
		if msg.Type != "text" || msg.Text == nil {
			continue
		}
		return &model.InboundMessage{
			ExternalID: msg.ID,
			SenderID:   msg.From,
			SenderName: contactName(value.Contacts, msg.From),
			Text:       msg.Text.Body,
			Type:       msg.Type,
			Timestamp:  msg.Timestamp.Time(),
		}, nil
	}

	return nil, ErrNoTextMessage
}

func contactName(contacts []waContact, waID string) string {
	for _, c := range contacts {
		if c.WaID == waID && c.Profile.Name != "" {
			return c.Profile.Name
		}
	}
	// Single-contact deliveries sometimes omit wa_id.
	if len(contacts) == 1 && contacts[0].WaID == "" && contacts[0].Profile.Name != "" {
		return contacts[0].Profile.Name
	}
	return unknownSender
}

// --- Messenger platform payload (Facebook and Instagram) ---

type msgrPayload struct {
	Object string      `json:"object"`
	Entry  []msgrEntry `json:"entry"`
}

type msgrEntry struct {
	ID        string      `json:"id"`
	Messaging []msgrEvent `json:"messaging"`
}

type msgrEvent struct {
	Sender    msgrParty     `json:"sender"`
	Recipient msgrParty     `json:"recipient"`
	Timestamp flexTimestamp `json:"timestamp"`
	Message   *msgrMessage  `json:"message,omitempty"`
}

type msgrParty struct {
	ID string `json:"id"`
}

type msgrMessage struct {
	Mid  string `json:"mid"`
	Text string `json:"text"`
}

func normalizeMessenger(body []byte) (*model.InboundMessage, error) {
	var payload msgrPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(payload.Entry) == 0 {
		return nil, ErrNoTextMessage
	}

	for _, event := range payload.Entry[0].Messaging {
		if event.Message == nil || event.Message.Text == "" {
			continue
		}
		externalID := event.Message.Mid
		if externalID == "" {
			externalID = event.Sender.ID
		}
		return &model.InboundMessage{
			ExternalID: externalID,
			SenderID:   event.Sender.ID,
			SenderName: unknownSender,
			Text:       event.Message.Text,
			Type:       "text",
			Timestamp:  event.Timestamp.Time(),
		}, nil
	}

	return nil, ErrNoTextMessage
}

// flexTimestamp accepts epoch milliseconds as a JSON number or numeric string.
// Anything else decodes to the zero value.
type flexTimestamp struct {
	ms    int64
	valid bool
}

func (t *flexTimestamp) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		n = json.Number(s)
	}
	if ms, err := n.Int64(); err == nil {
		t.ms, t.valid = ms, true
		return nil
	}
	if f, err := n.Float64(); err == nil {
		t.ms, t.valid = int64(f), true
	}
	return nil
}

// Time returns the timestamp in UTC, or the current time when absent.
func (t flexTimestamp) Time() time.Time {
	if !t.valid {
		return time.Now().UTC()
	}
	return time.UnixMilli(t.ms).UTC()
}
