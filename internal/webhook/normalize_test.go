package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/omnilead/internal/model"
)

const whatsAppPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "15550001", "profile": {"name": "Priya"}}],
        "messages": [
          {"from": "15550001", "id": "wamid.IMG", "timestamp": "1700000000000", "type": "image"},
          {"from": "15550001", "id": "wamid.TXT", "timestamp": "1700000000000", "type": "text", "text": {"body": "I want to enroll in MBA"}}
        ]
      }
    }]
  }]
}`

func TestNormalizeWhatsApp(t *testing.T) {
	msg, err := Normalize(model.ChannelWhatsApp, []byte(whatsAppPayload))
	require.NoError(t, err)

	assert.Equal(t, "wamid.TXT", msg.ExternalID)
	assert.Equal(t, "15550001", msg.SenderID)
	assert.Equal(t, "Priya", msg.SenderName)
	assert.Equal(t, "I want to enroll in MBA", msg.Text)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msg.Timestamp)
}

func TestNormalizeWhatsAppNoContact(t *testing.T) {
	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","id":"m","timestamp":1700000000000,"type":"text","text":{"body":"hi"}}]}}]}]}`
	msg, err := Normalize(model.ChannelWhatsApp, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "Unknown", msg.SenderName)
	assert.Equal(t, int64(1700000000), msg.Timestamp.Unix())
}

func TestNormalizeMessenger(t *testing.T) {
	body := `{
	  "object": "page",
	  "entry": [{
	    "id": "PAGE",
	    "messaging": [
	      {"sender": {"id": "psid-1"}, "recipient": {"id": "PAGE"}, "timestamp": 1700000000000, "delivery": {}},
	      {"sender": {"id": "psid-1"}, "recipient": {"id": "PAGE"}, "timestamp": 1700000000000, "message": {"mid": "m_1", "text": "Do you offer evening programs?"}}
	    ]
	  }]
	}`

	for _, ch := range []model.Channel{model.ChannelFacebook, model.ChannelInstagram} {
		t.Run(string(ch), func(t *testing.T) {
			msg, err := Normalize(ch, []byte(body))
			require.NoError(t, err)
			assert.Equal(t, "m_1", msg.ExternalID)
			assert.Equal(t, "psid-1", msg.SenderID)
			assert.Equal(t, "Unknown", msg.SenderName)
			assert.Equal(t, "Do you offer evening programs?", msg.Text)
			assert.Equal(t, int64(1700000000), msg.Timestamp.Unix())
		})
	}
}

func TestNormalizeMessengerWithoutMid(t *testing.T) {
	body := `{"entry":[{"messaging":[{"sender":{"id":"psid-2"},"message":{"text":"hello"}}]}]}`
	msg, err := Normalize(model.ChannelFacebook, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "psid-2", msg.ExternalID)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, 5*time.Second)
}

func TestNormalizeNoTextMessage(t *testing.T) {
	tests := []struct {
		name    string
		channel model.Channel
		body    string
	}{
		{"whatsapp empty object", model.ChannelWhatsApp, `{}`},
		{"whatsapp empty entry", model.ChannelWhatsApp, `{"entry":[]}`},
		{"whatsapp no changes", model.ChannelWhatsApp, `{"entry":[{}]}`},
		{"whatsapp status update", model.ChannelWhatsApp, `{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`},
		{"whatsapp image only", model.ChannelWhatsApp, `{"entry":[{"changes":[{"value":{"messages":[{"type":"image"}]}}]}]}`},
		{"whatsapp text without body", model.ChannelWhatsApp, `{"entry":[{"changes":[{"value":{"messages":[{"type":"text"}]}}]}]}`},
		{"facebook empty", model.ChannelFacebook, `{"entry":[{"messaging":[]}]}`},
		{"facebook empty text", model.ChannelFacebook, `{"entry":[{"messaging":[{"message":{"text":""}}]}]}`},
		{"instagram no entry", model.ChannelInstagram, `{"object":"instagram"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.channel, []byte(tt.body))
			assert.ErrorIs(t, err, ErrNoTextMessage)
		})
	}
}

func TestNormalizeMalformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"entry":`, `[1,2]`, `{"entry":"oops"}`} {
		_, err := Normalize(model.ChannelWhatsApp, []byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, body)

		_, err = Normalize(model.ChannelFacebook, []byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, body)
	}
}

func TestNormalizeUnsupportedChannel(t *testing.T) {
	_, err := Normalize("telegram", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedChannel)
}

func TestFlexTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
		ms    int64
	}{
		{"number", `1700000000123`, true, 1700000000123},
		{"string", `"1700000000123"`, true, 1700000000123},
		{"float", `1700000000123.0`, true, 1700000000123},
		{"null", `null`, false, 0},
		{"word", `"yesterday"`, false, 0},
		{"object", `{}`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts flexTimestamp
			require.NoError(t, ts.UnmarshalJSON([]byte(tt.raw)))
			assert.Equal(t, tt.valid, ts.valid)
			assert.Equal(t, tt.ms, ts.ms)
		})
	}
}
