package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/omnilead/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Migrate(ctx)
	require.NoError(t, err)
	return s
}

func inbound(sender, text string) *model.InboundMessage {
	return &model.InboundMessage{
		ExternalID: "ext-" + sender,
		SenderID:   sender,
		SenderName: "Priya",
		Text:       text,
		Type:       "text",
		Timestamp:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestMigrateStatus(t *testing.T) {
	s := newTestStore(t)

	status, err := s.MigrationStatus(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, status)
	for _, st := range status {
		assert.Equal(t, "applied", string(st.State))
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}

func TestFindOrCreateConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "hello"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.StatusOpen, first.Status)
	assert.Equal(t, model.RecipientBusiness, first.RecipientID)
	assert.Equal(t, "Priya", first.SenderName)

	second, created, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "second message"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "second message", second.MessageText)

	stored, err := s.GetConversation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "second message", stored.MessageText)
	assert.True(t, stored.Timestamp.Equal(time.Unix(1700000000, 0)))

	// Same sender on another channel is a separate conversation.
	other, created, err := s.FindOrCreateConversation(ctx, model.ChannelFacebook, inbound("1555", "hi"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestFindOrCreateAfterClose(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, _, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "hello"))
	require.NoError(t, err)
	require.NoError(t, s.SetConversationStatus(ctx, conv.ID, model.StatusClosed))

	next, created, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "back again"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, conv.ID, next.ID)

	closed, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, closed.Status)
}

func TestGetConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetConversationStatus(context.Background(), "missing", model.StatusClosed), ErrNotFound)
}

func TestUpdateClassification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, _, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "hello"))
	require.NoError(t, err)

	conv.Intent = model.IntentEnrollment
	conv.Sentiment = 0.6
	conv.Confidence = 0.9
	conv.LeadScore = 1.0
	conv.RequiresHuman = true
	conv.Status = model.StatusEscalated
	require.NoError(t, s.UpdateClassification(ctx, conv))

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IntentEnrollment, got.Intent)
	assert.InDelta(t, 0.6, got.Sentiment, 1e-9)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.InDelta(t, 1.0, got.LeadScore, 1e-9)
	assert.True(t, got.RequiresHuman)
	assert.Equal(t, model.StatusEscalated, got.Status)
}

func TestMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, _, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "hello"))
	require.NoError(t, err)

	in, err := s.AppendMessage(ctx, conv.ID, model.DirectionInbound, "hello")
	require.NoError(t, err)
	out, err := s.AppendMessage(ctx, conv.ID, model.DirectionOutbound, "hi there")
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, in.ID, msgs[0].ID)
	assert.Equal(t, model.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, "text", msgs[0].ContentType)
	assert.Equal(t, out.ID, msgs[1].ID)
	assert.Nil(t, msgs[1].DeliveredAt)

	require.NoError(t, s.MarkMessageRead(ctx, conv.ID, out.ID))
	msgs, err = s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.NotNil(t, msgs[1].ReadAt)
	assert.NotNil(t, msgs[1].DeliveredAt)

	assert.ErrorIs(t, s.MarkMessageDelivered(ctx, "other", out.ID), ErrNotFound)
}

func TestUsersAndAssignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &model.User{Email: "Admin@Example.com", PasswordHash: "x", FullName: "Ada", Role: model.RoleAdmin, Active: true}
	counselor := &model.User{Email: "c@example.com", PasswordHash: "x", FullName: "Cy", Role: model.RoleCounselor, Active: true}
	inactive := &model.User{Email: "s@example.com", PasswordHash: "x", FullName: "Sam", Role: model.RoleSales, Active: false}
	for _, u := range []*model.User{admin, counselor, inactive} {
		require.NoError(t, s.CreateUser(ctx, u))
	}

	assert.ErrorIs(t, s.CreateUser(ctx, &model.User{Email: "admin@example.com", PasswordHash: "x", Role: model.RoleAdmin}), ErrDuplicateEmail)

	got, err := s.GetUserByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
	assert.True(t, got.Active)

	users, err := s.ListActiveUsersByRoles(ctx, model.RoleAdmin, model.RoleSales)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)

	conv, _, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "hello"))
	require.NoError(t, err)
	_, _, err = s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1666", "hello"))
	require.NoError(t, err)

	assigned, err := s.AssignConversation(ctx, conv.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, admin.ID, *assigned.AssignedTo)

	// A counselor sees unassigned conversations and their own.
	visible, err := s.ListConversations(ctx, model.ConversationFilter{VisibleTo: counselor.ID})
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := s.ListConversations(ctx, model.ConversationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byStatus, err := s.ListConversations(ctx, model.ConversationFilter{Status: model.StatusAssigned, Channel: model.ChannelWhatsApp})
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)

	perf, err := s.AgentPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Equal(t, "Ada", perf[0].Agent)
	assert.Equal(t, 1, perf[0].ConversationsHandled)
}

func TestLeads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, _, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "I want to enroll"))
	require.NoError(t, err)

	lead, err := s.CreateLead(ctx, conv.ID, model.LeadInfo{Name: "Priya", Phone: "+15550001", ProgramInterest: "MBA"}, 0.85)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	assert.Equal(t, model.PriorityMedium, lead.Priority)

	status := model.LeadStatusQualified
	notes := "called back"
	updated, err := s.UpdateLead(ctx, lead.ID, model.UpdateLeadRequest{Status: &status, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusQualified, updated.Status)
	assert.Equal(t, "called back", updated.Notes)
	assert.Equal(t, model.PriorityMedium, updated.Priority)

	leads, err := s.ListLeads(ctx, model.LeadFilter{Status: model.LeadStatusQualified})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.InDelta(t, 0.85, leads[0].Score, 1e-9)

	byConv, err := s.ListLeadsByConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, byConv, 1)

	_, err = s.UpdateLead(ctx, "missing", model.UpdateLeadRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, _, err := s.FindOrCreateConversation(ctx, model.ChannelWhatsApp, inbound("1555", "hello"))
	require.NoError(t, err)
	_, _, err = s.FindOrCreateConversation(ctx, model.ChannelFacebook, inbound("1666", "hello"))
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, model.DirectionOutbound, "reply")
	require.NoError(t, err)

	lead, err := s.CreateLead(ctx, conv.ID, model.LeadInfo{Name: "Priya"}, 0.9)
	require.NoError(t, err)
	converted := model.LeadStatusConverted
	_, err = s.UpdateLead(ctx, lead.ID, model.UpdateLeadRequest{Status: &converted})
	require.NoError(t, err)

	stats, err := s.Dashboard(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalConversations)
	assert.Equal(t, 1, stats.ByChannel["whatsapp"])
	assert.Equal(t, 1, stats.ByChannel["facebook"])
	assert.Equal(t, 2, stats.ByStatus["open"])
	assert.Equal(t, 1, stats.TotalLeads)
	assert.Equal(t, 1, stats.Funnel.Converted)
	assert.InDelta(t, 1.0, stats.Funnel.ConversionRate, 1e-9)
	assert.Greater(t, stats.AvgResponseTimeHours, 0.0)

	rows, err := s.ExportConversations(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	empty, err := s.Dashboard(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalConversations)
	assert.Equal(t, 0.0, empty.AvgResponseTimeHours)
}
