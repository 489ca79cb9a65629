package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/omnilead/internal/llm"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/store"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

// fakeLLM answers by system prompt.
type fakeLLM struct {
	mu       sync.Mutex
	classify string
	reply    string
	extract  string
	err      error
	calls    map[string]int
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}

	var op, content string
	switch req.System {
	case classifyPrompt:
		op, content = "classify", f.classify
	case replyPrompt:
		op, content = "reply", f.reply
	case extractPrompt:
		op, content = "extract", f.extract
	}
	f.calls[op]++

	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: content, Model: "fake"}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

type fakeNotifier struct {
	escalations []*model.Conversation
	leads       []*model.Lead
}

func (n *fakeNotifier) NotifyEscalation(_ context.Context, conv *model.Conversation) error {
	n.escalations = append(n.escalations, conv)
	return nil
}

func (n *fakeNotifier) NotifyLead(_ context.Context, lead *model.Lead) (bool, error) {
	n.leads = append(n.leads, lead)
	return lead.Score >= 0.7, nil
}

type fakePublisher struct {
	events []*model.ConversationEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, e *model.ConversationEvent) (uint64, error) {
	p.events = append(p.events, e)
	return uint64(len(p.events)), nil
}

func (p *fakePublisher) types() []model.EventType {
	out := make([]model.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Migrate(ctx)
	require.NoError(t, err)
	return s
}

func newTestAI(client llm.Client) *AIService {
	if client == nil {
		return NewAIService(nil, "", time.Second, logger.NewNop())
	}
	return NewAIService(client, "fake", time.Second, logger.NewNop())
}

func createUser(t *testing.T, s *store.Store, email string, role model.Role) *model.User {
	t.Helper()
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	u := &model.User{Email: email, PasswordHash: hash, FullName: email, Role: role, Active: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}
