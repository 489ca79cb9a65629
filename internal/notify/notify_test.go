package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/wneessen/go-mail"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

type fakeDirectory struct {
	users []model.User
	roles []model.Role
	err   error
}

func (f *fakeDirectory) ListActiveUsersByRoles(_ context.Context, roles ...model.Role) ([]model.User, error) {
	f.roles = roles
	return f.users, f.err
}

type recordingSender struct {
	name string
	err  error
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Name() string { return r.name }

func (r *recordingSender) Send(_ context.Context, u model.User, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, u.ID+":"+n.Message)
	return r.err
}

type recordingBroadcaster struct {
	got []Notification
}

func (r *recordingBroadcaster) Name() string { return "chat" }

func (r *recordingBroadcaster) Broadcast(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return nil
}

func TestNotifyEscalation(t *testing.T) {
	dir := &fakeDirectory{users: []model.User{{ID: "u1"}, {ID: "u2"}}}
	push := &recordingSender{name: "push"}
	failing := &recordingSender{name: "email", err: errors.New("smtp down")}
	chat := &recordingBroadcaster{}

	d := NewDispatcher(dir, 0.7, logger.NewNop())
	d.AddSender(push)
	d.AddSender(failing)
	d.AddBroadcaster(chat)

	conv := &model.Conversation{ID: "c1", SenderName: "Priya", Channel: model.ChannelWhatsApp}
	require.NoError(t, d.NotifyEscalation(context.Background(), conv))

	assert.ElementsMatch(t, []model.Role{model.RoleAdmin, model.RoleSales, model.RoleCounselor}, dir.roles)
	assert.Equal(t, []string{
		"u1:New escalated conversation from Priya (whatsapp)",
		"u2:New escalated conversation from Priya (whatsapp)",
	}, push.sent)
	// A failing channel is attempted for every user and does not stop the others.
	assert.Len(t, failing.sent, 2)
	require.Len(t, chat.got, 1)
	assert.Equal(t, "c1", chat.got[0].ReferenceID)
	assert.Equal(t, []string{"push", "email", "chat"}, d.Channels())
}

func TestNotifyLead(t *testing.T) {
	dir := &fakeDirectory{users: []model.User{{ID: "u1"}}}
	push := &recordingSender{name: "push"}
	sms := &recordingSender{name: "sms"}

	d := NewDispatcher(dir, 0.7, logger.NewNop())
	d.AddSender(push)
	d.AddSender(sms, KindEscalation)

	sent, err := d.NotifyLead(context.Background(), &model.Lead{ID: "l1", Name: "Priya", Score: 0.69})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, push.sent)

	sent, err = d.NotifyLead(context.Background(), &model.Lead{ID: "l2", Name: "Priya", Score: 0.7})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"u1:High-value lead: Priya - Score: 0.70"}, push.sent)
	assert.Empty(t, sms.sent)
	assert.ElementsMatch(t, []model.Role{model.RoleAdmin, model.RoleSales}, dir.roles)
}

func TestDispatchDirectoryError(t *testing.T) {
	d := NewDispatcher(&fakeDirectory{err: errors.New("db gone")}, 0.7, logger.NewNop())
	err := d.NotifyEscalation(context.Background(), &model.Conversation{ID: "c1"})
	assert.Error(t, err)
}

func TestEmailSender(t *testing.T) {
	e, err := NewEmailSender("smtp.example.com", 587, "user", "pass", "noreply@omnilead.com")
	require.NoError(t, err)

	var sent []string
	e.send = func(_ context.Context, msg *mail.Msg) error {
		var buf bytes.Buffer
		if _, err := msg.WriteTo(&buf); err != nil {
			return err
		}
		sent = append(sent, buf.String())
		return nil
	}

	n := Notification{Subject: "Escalated\r\nBcc: x@y.z", Message: "New escalated conversation", ReferenceID: "c1"}
	require.NoError(t, e.Send(context.Background(), model.User{Email: "ada@example.com"}, n))

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "ada@example.com")
	assert.Contains(t, sent[0], "noreply@omnilead.com")
	assert.Contains(t, sent[0], "Reference ID: c1")
	assert.NotContains(t, sent[0], "\r\nBcc:")

	// Users without an address are skipped.
	require.NoError(t, e.Send(context.Background(), model.User{}, n))
	assert.Len(t, sent, 1)
}

func TestEmailSenderRejectsHeaderInjection(t *testing.T) {
	e, err := NewEmailSender("smtp.example.com", 587, "", "", "noreply@omnilead.com")
	require.NoError(t, err)

	called := false
	e.send = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	err = e.Send(context.Background(), model.User{Email: "ada@example.com\r\nBcc: eve@example.com"}, Notification{Message: "hi"})
	require.Error(t, err)
	assert.False(t, called)
}

type fakeMessages struct {
	params []*twilioapi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(p *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	return &twilioapi.ApiV2010Message{}, nil
}

func TestSMSSender(t *testing.T) {
	api := &fakeMessages{}
	s := NewSMSSender("AC123", "token", "+15550000")
	s.api = api

	require.NoError(t, s.Send(context.Background(), model.User{Phone: "+15551111"}, Notification{Message: "hello"}))
	require.Len(t, api.params, 1)
	p := api.params[0]
	require.NotNil(t, p.To)
	require.NotNil(t, p.From)
	require.NotNil(t, p.Body)
	assert.Equal(t, "+15551111", *p.To)
	assert.Equal(t, "+15550000", *p.From)
	assert.Equal(t, "hello", *p.Body)

	// No phone on file, no request.
	require.NoError(t, s.Send(context.Background(), model.User{}, Notification{Message: "hello"}))
	assert.Len(t, api.params, 1)
}

func TestSMSSenderError(t *testing.T) {
	s := NewSMSSender("AC123", "token", "+15550000")
	s.api = &fakeMessages{err: errors.New("invalid To")}

	err := s.Send(context.Background(), model.User{Phone: "bad"}, Notification{Message: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid To")
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramBroadcaster(t *testing.T) {
	api := &fakeTelegram{}
	b := &TelegramBroadcaster{bot: api, chatID: -100}

	require.NoError(t, b.Broadcast(context.Background(), Notification{Subject: "S", Message: "M", ReferenceID: "r"}))
	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100), msg.ChatID)
	assert.Equal(t, "S\nM\nRef: r", msg.Text)
}
