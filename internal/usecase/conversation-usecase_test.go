package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackcqishibee-web/locallife-assistant/internal/backend"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	in_memory "github.com/trackcqishibee-web/locallife-assistant/internal/storage/in-memory"
)

type fakeConversationAPI struct {
	conversations map[string]model.Conversation
	summaries     []backend.ConversationSummary
	getErr        error
	listErr       error
	deleted       []string
}

func (f *fakeConversationAPI) CreateConversation(ctx context.Context, userID string, metadata map[string]any) (string, error) {
	return "conv-created", nil
}

func (f *fakeConversationAPI) GetConversation(ctx context.Context, userID, conversationID string) (model.Conversation, error) {
	if f.getErr != nil {
		return model.Conversation{}, f.getErr
	}
	conv, ok := f.conversations[conversationID]
	if !ok {
		return model.Conversation{}, errors.New("conversation not found")
	}
	return conv, nil
}

func (f *fakeConversationAPI) ListConversations(ctx context.Context, userID string) ([]backend.ConversationSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeConversationAPI) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	f.deleted = append(f.deleted, conversationID)
	return nil
}

func prose(role model.Role, content string) model.Message {
	return model.Message{Role: role, Content: content, Timestamp: time.Unix(1000, 0).UTC()}
}

func newTestConversations(api *fakeConversationAPI) *ConversationUsecase {
	return NewConversationUsecase(ConversationUsecaseDeps{
		Store: in_memory.NewStore(),
		API:   api,
	}, testLogger())
}

func TestSaveTranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestConversations(&fakeConversationAPI{})

	messages := []model.Message{
		prose(model.RoleUser, "jazz tonight"),
		{
			Role:      model.RoleAssistant,
			Content:   "found some",
			Timestamp: time.Unix(1001, 0).UTC(),
			Recommendations: []model.RecommendationItem{
				eventItem("ev-1", "Blue Note"),
			},
		},
	}
	if err := c.SetConversationID(ctx, "conv-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTranscript(ctx, "anon_u1", messages); err != nil {
		t.Fatal(err)
	}

	conv, err := c.LoadLocal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if conv.ConversationID != "conv-1" || conv.OwnerID != "anon_u1" {
		t.Errorf("conversation = %+v", conv)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	got := conv.Messages[1]
	if got.Content != "found some" || len(got.Recommendations) != 1 {
		t.Errorf("assistant message = %+v", got)
	}
	if got.Recommendations[0].StableID() != "ev-1" {
		t.Errorf("recommendation id = %q", got.Recommendations[0].StableID())
	}
}

func TestLoadLocalWithoutTranscript(t *testing.T) {
	c := newTestConversations(&fakeConversationAPI{})

	_, err := c.LoadLocal(context.Background())
	if !errors.Is(err, ErrNoConversation) {
		t.Fatalf("err = %v, want ErrNoConversation", err)
	}
}

func TestLoadAdoptsLongerRemote(t *testing.T) {
	ctx := context.Background()
	remote := model.Conversation{
		ConversationID: "conv-1",
		OwnerID:        "anon_u1",
		Messages: []model.Message{
			prose(model.RoleUser, "jazz tonight"),
			prose(model.RoleAssistant, "found some"),
			prose(model.RoleUser, "anything cheaper?"),
		},
	}
	api := &fakeConversationAPI{conversations: map[string]model.Conversation{"conv-1": remote}}
	c := newTestConversations(api)

	if err := c.SetConversationID(ctx, "conv-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTranscript(ctx, "anon_u1", remote.Messages[:1]); err != nil {
		t.Fatal(err)
	}

	conv, err := c.Load(ctx, "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("messages = %d, want remote copy adopted", len(conv.Messages))
	}

	local, err := c.LoadLocal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(local.Messages) != 3 {
		t.Errorf("adoption not persisted, local messages = %d", len(local.Messages))
	}
}

func TestLoadKeepsLocalOnRemoteError(t *testing.T) {
	ctx := context.Background()
	api := &fakeConversationAPI{getErr: errors.New("backend down")}
	c := newTestConversations(api)

	if err := c.SetConversationID(ctx, "conv-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTranscript(ctx, "anon_u1", []model.Message{prose(model.RoleUser, "hi")}); err != nil {
		t.Fatal(err)
	}

	conv, err := c.Load(ctx, "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 1 {
		t.Errorf("local copy lost: %+v", conv)
	}
}

func TestFetchRemoteFallsBackToListing(t *testing.T) {
	ctx := context.Background()
	remote := model.Conversation{
		ConversationID: "conv-2",
		OwnerID:        "user-reg",
		Messages:       []model.Message{prose(model.RoleUser, "hello")},
	}
	api := &fakeConversationAPI{
		conversations: map[string]model.Conversation{"conv-2": remote},
		summaries: []backend.ConversationSummary{
			{ConversationID: "conv-empty", MessageCount: 0},
			{ConversationID: "conv-2", MessageCount: 1},
		},
	}
	c := newTestConversations(api)

	conv, err := c.FetchRemote(ctx, "user-reg", "")
	if err != nil {
		t.Fatal(err)
	}
	if conv.ConversationID != "conv-2" {
		t.Errorf("fetched %q, want conv-2", conv.ConversationID)
	}
}

func TestFetchRemoteNothingOnRecord(t *testing.T) {
	c := newTestConversations(&fakeConversationAPI{})

	_, err := c.FetchRemote(context.Background(), "user-reg", "")
	if !errors.Is(err, ErrNoConversation) {
		t.Fatalf("err = %v, want ErrNoConversation", err)
	}
}

func TestStartNewReplacesConversation(t *testing.T) {
	ctx := context.Background()
	c := newTestConversations(&fakeConversationAPI{})

	if err := c.SetConversationID(ctx, "conv-old"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTranscript(ctx, "anon_u1", []model.Message{prose(model.RoleUser, "hi")}); err != nil {
		t.Fatal(err)
	}

	conversationID, err := c.StartNew(ctx, "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	if conversationID != "conv-created" {
		t.Errorf("conversation id = %q", conversationID)
	}
	if _, err := c.LoadLocal(ctx); !errors.Is(err, ErrNoConversation) {
		t.Errorf("old transcript survived: %v", err)
	}
	known, err := c.ConversationID(ctx)
	if err != nil || known != "conv-created" {
		t.Errorf("known id = %q, err = %v", known, err)
	}
}

func TestDeleteRemoteClearsLocalState(t *testing.T) {
	ctx := context.Background()
	api := &fakeConversationAPI{}
	c := newTestConversations(api)

	if err := c.SetConversationID(ctx, "conv-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTranscript(ctx, "anon_u1", []model.Message{prose(model.RoleUser, "hi")}); err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteRemote(ctx, "anon_u1"); err != nil {
		t.Fatal(err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "conv-1" {
		t.Errorf("deleted = %v", api.deleted)
	}
	if _, err := c.LoadLocal(ctx); !errors.Is(err, ErrNoConversation) {
		t.Errorf("local state survived delete: %v", err)
	}
}
